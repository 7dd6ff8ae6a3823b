package credentials

import (
	"testing"

	"github.com/starford/indexsync/internal/models"
)

func TestResolve(t *testing.T) {
	cfg := models.Credentials{AppID: "A", APIKey: "B"}

	cases := []struct {
		name     string
		cfg      models.Credentials
		override *models.Override
		want     models.Credentials
	}{
		{"no override", cfg, nil, cfg},
		{"empty override keeps config", cfg, &models.Override{}, cfg},
		{
			"key wins over password, empty username does not clear",
			cfg,
			&models.Override{Username: "", Password: "C", Key: "D"},
			models.Credentials{AppID: "A", APIKey: "D"},
		},
		{
			"password alone",
			cfg,
			&models.Override{Password: "C"},
			models.Credentials{AppID: "A", APIKey: "C"},
		},
		{
			"username replaces app id",
			cfg,
			&models.Override{Username: "Z"},
			models.Credentials{AppID: "Z", APIKey: "B"},
		},
		{
			"override fills missing config",
			models.Credentials{},
			&models.Override{Username: "U", Key: "K"},
			models.Credentials{AppID: "U", APIKey: "K"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Resolve(c.cfg, c.override)
			if got != c.want {
				t.Errorf("Resolve() = %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestResolve_MissingStaysIncomplete(t *testing.T) {
	got := Resolve(models.Credentials{AppID: "A"}, &models.Override{Username: "X"})
	if got.Complete() {
		t.Errorf("credentials %+v should be incomplete", got)
	}
}
