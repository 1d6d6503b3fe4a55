package usecase

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Object key layout of the blob store.

func rawKey(symbol, date, id string) string {
	return fmt.Sprintf("training/raw/stock_data_%s_%s_%s.json", symbol, date, id)
}

func processedKey(symbol, date, id string) string {
	return fmt.Sprintf("training/processed/stock_data_%s_%s_%s.csv", symbol, date, id)
}

// ArtifactKey is the logical artifact name; it always holds the latest fit.
func ArtifactKey(family string) string {
	return fmt.Sprintf("training/models/%s_model.json", family)
}

// VersionedArtifactKey names one immutable fit.
func VersionedArtifactKey(family, version string) string {
	return fmt.Sprintf("training/models/%s/%s.json", family, version)
}

func predictionsKey(id string) string {
	return fmt.Sprintf("predictions/predictions_%s.csv", id)
}

func actualsKey(id string) string {
	return fmt.Sprintf("actuals/actuals_%s.csv", id)
}

var jobNameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// jobNameMax is the managed training service's limit on job names.
const jobNameMax = 63

// JobNamePrefix derives the shared prefix of one dispatch's job names from
// the dataset key: the file name plus a unique id, sanitized and capped at
// 63 characters.
func JobNamePrefix(datasetKey, id string) string {
	unique := path.Base(datasetKey) + "_" + id
	name := "stock-data-training-" + jobNameUnsafe.ReplaceAllString(unique, "-")
	if len(name) > jobNameMax {
		name = name[:jobNameMax]
	}
	return name
}

// JobName appends the family to a dispatch prefix, shortening the prefix so
// the whole name stays within 63 characters. Underscores in the family
// become hyphens.
func JobName(prefix, family string) string {
	suffix := "-" + strings.ReplaceAll(family, "_", "-")
	if len(prefix)+len(suffix) > jobNameMax {
		prefix = prefix[:jobNameMax-len(suffix)]
	}
	return prefix + suffix
}
