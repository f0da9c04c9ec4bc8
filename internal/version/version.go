// Пакет version хранит сведения о сборке deal-service,
// проставляемые компоновщиком через -ldflags.
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// String возвращает сводку сборки для логов запуска.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}

// UserAgent идентифицирует сервис в исходящих HTTP-запросах.
func UserAgent() string {
	return "deal-service/" + version
}
