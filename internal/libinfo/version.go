/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo provides information about the library build, e.g. its version for metrics labels.
package libinfo

import (
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const moduleName = "github.com/acronis/go-throttleq"

// PrometheusLibVersionLabel is a name of the constant label with the library version added to all metrics.
const PrometheusLibVersionLabel = "go_throttleq_version"

const unknownVersion = "v0.0.0"

var (
	libVersion     string
	libVersionOnce sync.Once
)

// AddPrometheusLibVersionLabel returns a copy of labels with the library version label added.
func AddPrometheusLibVersionLabel(labels prometheus.Labels) prometheus.Labels {
	res := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		res[k] = v
	}
	res[PrometheusLibVersionLabel] = GetLibVersion()
	return res
}

// GetLibVersion returns the version of the library module the binary is built with.
// "v0.0.0" is returned when it cannot be determined (e.g. in tests of the library itself).
func GetLibVersion() string {
	libVersionOnce.Do(func() {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			libVersion = extractLibVersion(buildInfo, moduleName)
		}
		if libVersion == "" {
			libVersion = unknownVersion
		}
	})
	return libVersion
}

// extractLibVersion looks for the module in the build dependencies.
// Module path may have a major version suffix ("/v2").
func extractLibVersion(buildInfo *debug.BuildInfo, modName string) string {
	if buildInfo == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	for _, dep := range buildInfo.Deps {
		if re.MatchString(dep.Path) {
			if dep.Replace != nil && dep.Replace.Version != "" {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return ""
}
