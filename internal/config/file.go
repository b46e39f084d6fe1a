package config

import (
	"flag"
	"fmt"

	"github.com/go-ini/ini"
)

// applyFile loads the INI file at path and sets every flag that appears in
// it, except those in explicit (set on the command line or via env).
// Values go through fs.Set so they are parsed exactly like flags.
//
// Example:
//
//	[database]
//	driver = postgres
//	schema = public
//
//	[dump]
//	output  = /backups/prod.sql
//	exclude = sessions, audit_log
//
//	[limits]
//	query_timeout = 30s
//	max_qps       = 20
func applyFile(fs *flag.FlagSet, path string, explicit map[string]bool) error {
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	for _, s := range settings {
		if explicit[s.flag] {
			continue
		}
		sec, err := f.GetSection(s.section)
		if err != nil || !sec.HasKey(s.key) {
			continue
		}
		if err := fs.Set(s.flag, sec.Key(s.key).String()); err != nil {
			return fmt.Errorf("config file %s: [%s] %s: %w", path, s.section, s.key, err)
		}
	}
	return nil
}
