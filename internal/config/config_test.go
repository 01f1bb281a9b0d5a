package config

import "testing"

func TestParseGeometryLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   GeometryLevel
		wantOK bool
	}{
		{"auto", GeometryAuto, true},
		{"basic", GeometryBasic, true},
		{"full", GeometryFull, true},
		{"", GeometryAuto, false},
		{"FULL", GeometryAuto, false},
		{"complete", GeometryAuto, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseGeometryLevel(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseGeometryLevel(%q) = (%s, %v), want (%s, %v)",
					tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := DefaultConfig()
		c.InputFile = "region.osm.pbf"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with input", func(c *Config) {}, false},
		{"missing input", func(c *Config) { c.InputFile = "" }, true},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"negative workers", func(c *Config) { c.Workers = -2 }, true},
		{"batch too small", func(c *Config) { c.BatchSize = 10 }, true},
		{"minimum batch", func(c *Config) { c.BatchSize = 1000 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.Workers < 1 {
		t.Errorf("Workers = %d, want >= 1", c.Workers)
	}
	if c.GeometryLevel != GeometryAuto {
		t.Errorf("GeometryLevel = %s, want auto", c.GeometryLevel)
	}
	if c.BatchSize < 1000 {
		t.Errorf("BatchSize = %d", c.BatchSize)
	}
}
