package dump

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RuleLine frames the per-table banners and the footer.
const RuleLine = "-- ============================================================================"

// header returns the fixed opening block, ending with the blank line after
// the replication-role statement.
func header(now time.Time) []string {
	return []string{
		"-- COMPLETE PRODUCTION DATABASE DUMP",
		generatedPrefix + now.Format("January 2, 2006"),
		"-- Contains ALL production data",
		"",
		"-- Disable foreign key checks for import",
		"SET session_replication_role = replica;",
		"",
	}
}

// footer returns the fixed closing block.
func footer() []string {
	return []string{
		RuleLine,
		"-- Re-enable foreign key checks",
		RuleLine,
		"SET session_replication_role = DEFAULT;",
		"",
		"-- Import complete! All production data has been restored.",
	}
}

// banner returns the three comment lines opening a table section.
func banner(table, count string) []string {
	return []string{
		RuleLine,
		"-- " + cases.Upper(language.Und).String(table) + " (" + count + " records)",
		RuleLine,
	}
}
