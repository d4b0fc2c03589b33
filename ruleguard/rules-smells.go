package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two guards in a row with the same return can be merged with ||.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// Nested loops are fine in the splitter and ranking code, but worth a look elsewhere.
	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Where(!m.File().PkgPath.Matches(`/internal/domain/knowledge$`)).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

// logging keeps conversation output on the console and diagnostics on the
// injected logger.
func logging(m dsl.Matcher) {
	m.Match(`fmt.Print($*_)`, `fmt.Printf($*_)`, `fmt.Println($*_)`).
		Where(m.File().PkgPath.Matches(`/internal/(domain|infra)/`)).
		Report(`domain and infra code must not print; return the value or log through the injected *slog.Logger`)

	m.Match(`slog.Debug($*_)`, `slog.Info($*_)`, `slog.Warn($*_)`, `slog.Error($*_)`).
		Where(m.File().PkgPath.Matches(`/internal/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report(`use the injected *slog.Logger instead of the default logger`)

	m.Match(`log.Printf($*_)`, `log.Println($*_)`, `log.Fatalf($*_)`).
		Report(`use log/slog`)
}
