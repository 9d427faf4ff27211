package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testRoster = []string{
	"CLAUDIA RODRIGUEZ RODRIGUEZ",
	"HERNAN ROLDAN",
	"JHOAN ORTIZ",
	"JUAN GARZÓN LINARES",
	"KAREN CARRILLO",
	"LIZETH MARTINEZ",
	"PABLO RODRIGUEZ RODRIGUEZ",
}

var testAliases = map[string]string{
	"hernan b roldan":        "HERNAN ROLDAN",
	"hernan benancio roldan": "HERNAN ROLDAN",
	"juan garzon":            "JUAN GARZÓN LINARES",
	"pablo cesar rodriguez":  "PABLO RODRIGUEZ RODRIGUEZ",
	"alguien":                "NO EXISTE",
}

func newTestResolver() *Resolver {
	return NewResolver(testRoster, testAliases, "", 0)
}

func TestResolveEmailAndLastFirstAgree(t *testing.T) {
	r := newTestResolver()
	a := r.Resolve("garzon.juan@company.com")
	b := r.Resolve("Garzón Linares, Juan")
	assert.Equal(t, "JUAN GARZÓN LINARES", a)
	assert.Equal(t, a, b)
}

func TestResolveCascade(t *testing.T) {
	r := newTestResolver()
	cases := []struct{ in, want string }{
		{"", ""},
		{"   ", ""},
		{"Hernán B. Roldán", "HERNAN ROLDAN"},
		{"pablo_cesar.rodriguez@ingetes.com", "PABLO RODRIGUEZ RODRIGUEZ"},
		{"karen carrillo", "KAREN CARRILLO"},
		{"Karen A. Carrillo", "KAREN CARRILLO"},
		{"Sr. Ortizzz", "JHOAN ORTIZ"},
		{"Nadie Conocido", DefaultUnresolved},
		{"...", DefaultUnresolved},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, r.Resolve(c.in), "input %q", c.in)
	}
}

func TestResolveTieKeepsRosterOrder(t *testing.T) {
	r := NewResolver([]string{"Ana Perez", "Ana Gomez"}, nil, "?", 0.5)
	for i := 0; i < 20; i++ {
		assert.Equal(t, "Ana Perez", r.Resolve("ana"))
	}
	assert.Equal(t, "CLAUDIA RODRIGUEZ RODRIGUEZ", newTestResolver().Resolve("Rodriguez"))
}

func TestAliasToUnknownNameIsIgnored(t *testing.T) {
	r := newTestResolver()
	assert.Equal(t, DefaultUnresolved, r.Resolve("alguien"))
}

func TestHelpers(t *testing.T) {
	r := newTestResolver()
	assert.Equal(t, testRoster, r.Names())
	assert.True(t, r.IsKnown("Karen Carrillo"))
	assert.False(t, r.IsKnown(DefaultUnresolved))
	assert.Contains(t, r.Names(), r.Suggest("Karen Carillo"))
	assert.Equal(t, "", r.Suggest(""))
}
