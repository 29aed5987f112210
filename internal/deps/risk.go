package deps

import (
	"strings"

	"github.com/sprite-ai/prlens/internal/model"
)

// highRiskPackages are matched as substrings of the lowercased package name.
var highRiskPackages = []string{
	// python
	"cryptography", "pyjwt", "requests", "urllib3", "flask", "django",
	"sqlalchemy", "psycopg2", "pymongo", "redis", "celery",
	// javascript
	"express", "axios", "request", "lodash", "moment", "jquery",
	"react", "vue", "angular", "webpack", "babel",
	// go, rust
	"gorm", "pgx", "gin-gonic", "tokio", "hyper", "diesel",
	// general
	"openssl", "ssh", "ssl", "tls", "oauth", "jwt",
}

var securityKeywords = []string{"auth", "crypto", "security", "ssl", "tls", "jwt", "oauth"}

// AssessRisk classifies a change to pkg.
func AssessRisk(pkg string, change model.ChangeType) model.Severity {
	name := strings.ToLower(pkg)
	for _, p := range highRiskPackages {
		if strings.Contains(name, p) {
			return model.SeverityHigh
		}
	}
	for _, k := range securityKeywords {
		if strings.Contains(name, k) {
			return model.SeverityMedium
		}
	}
	if change == model.ChangeDowngraded {
		return model.SeverityMedium
	}
	return model.SeverityLow
}

// CompareVersions classifies old→new by numeric dotted components. Leading
// operators and a "v" prefix are ignored; each component counts by its
// leading digits, a component without any counts as 0, and the shorter
// version is padded with zeros.
func CompareVersions(oldVer, newVer string) model.ChangeType {
	a, b := versionParts(oldVer), versionParts(newVer)
	for len(a) < len(b) {
		a = append(a, 0)
	}
	for len(b) < len(a) {
		b = append(b, 0)
	}
	for i := range a {
		switch {
		case b[i] > a[i]:
			return model.ChangeUpgraded
		case b[i] < a[i]:
			return model.ChangeDowngraded
		}
	}
	return model.ChangeModified
}

func versionParts(v string) []int {
	v = strings.TrimLeft(strings.TrimSpace(v), "=<>~^!v ")
	var parts []int
	for _, seg := range strings.Split(v, ".") {
		n := 0
		for _, r := range seg {
			if r < '0' || r > '9' {
				break
			}
			n = n*10 + int(r-'0')
		}
		parts = append(parts, n)
	}
	return parts
}
