package grammar

import "regexp"

// platformRE matches an OS name optionally followed by a dash-separated OS
// version and CPU architecture, as used in platforms lists and artifacts.
var platformRE = regexp.MustCompile(
	`^(?:any|aix|android|bsd|darwin|dragonfly|freebsd|gnulinux|illumos|ios|js|linux|musllinux|netbsd|openbsd|plan9|solaris|wasip1|windows)` +
		`(?:-\d[^-\s]*)?` +
		`(?:-(?:386|amd64|arm|arm64|loong64|mips|mips64|mips64le|mipsle|ppc64|ppc64le|riscv64|s390x|sparc64|wasm))?$`,
)

// IsPlatform reports whether s names a computing platform.
func IsPlatform(s string) bool {
	return platformRE.MatchString(s)
}
