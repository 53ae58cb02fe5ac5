package materials

import "testing"

func TestCategoryBaseName(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{Terrain, "MT_Terrain"},
		{Decor, "MT_Decor"},
		{Knobs, "MT_Knobs"},
		{Water, ""},
		{Category(9), ""},
	}
	for _, tt := range tests {
		if got := tt.cat.BaseName(); got != tt.want {
			t.Errorf("%v.BaseName() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %v, %v", c.String(), got, err)
		}
	}
	if got, err := ParseCategory("knobs"); err != nil || got != Knobs {
		t.Errorf("ParseCategory(knobs) = %v, %v", got, err)
	}
	if _, err := ParseCategory("Lava"); err == nil {
		t.Error("ParseCategory(Lava) succeeded")
	}
	if s := Category(7).String(); s != "Category(7)" {
		t.Errorf("String() = %q", s)
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Red":      "MT_Red",
		"MT_Red":   "MT_Red",
		"":         "MT_",
		"mt_lower": "MT_mt_lower",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsInstance(t *testing.T) {
	if (&Material{}).IsInstance() {
		t.Error("base material reported as instance")
	}
	if !(&Material{Parent: "/MeshSync/Materials/MT_Decor"}).IsInstance() {
		t.Error("instance not reported")
	}
}
