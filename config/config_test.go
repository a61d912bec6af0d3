package config

import "testing"

func TestMysqlDSN(t *testing.T) {
	t.Run("ConfiguredCharset", func(t *testing.T) {
		m := mysql{
			Addr:     "127.0.0.1:3306",
			Database: "loopline",
			Username: "root",
			Password: "secret",
			Charset:  "utf8",
		}
		want := "root:secret@tcp(127.0.0.1:3306)/loopline?charset=utf8&parseTime=True&loc=Local"
		if got := m.DSN(); got != want {
			t.Errorf("DSN() = %q, want %q", got, want)
		}
	})

	t.Run("DefaultCharset", func(t *testing.T) {
		m := mysql{
			Addr:     "db:3306",
			Database: "loopline",
			Username: "svc",
			Password: "pw",
		}
		want := "svc:pw@tcp(db:3306)/loopline?charset=utf8mb4&parseTime=True&loc=Local"
		if got := m.DSN(); got != want {
			t.Errorf("DSN() = %q, want %q", got, want)
		}
	})
}
