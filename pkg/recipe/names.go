package recipe

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	stagedFolder  = "data_wrangler_flows"
	jobNamePrefix = "data-wrangler-flow-processing-"
)

// ExportID identifies one export of a recipe: day and time of export plus a
// short random suffix.
func ExportID(now time.Time) string {
	return now.UTC().Format("02-15-04-05") + "-" + shortID()
}

// StagedKey is the object key the recipe is uploaded to for an export.
func StagedKey(prefix, exportID string) string {
	return path.Join(strings.Trim(prefix, "/"), stagedFolder, "flow-"+exportID+".flow")
}

// JobName is the processing job name for an export.
func JobName(exportID string) string {
	return jobNamePrefix + exportID
}

// FlowName derives a recipe's name from its file path.
func FlowName(recipePath string) string {
	base := path.Base(strings.ReplaceAll(recipePath, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// DefaultFeatureGroupName is used when no feature group name is configured.
// Characters the platform rejects in names become hyphens.
func DefaultFeatureGroupName(flowName string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, flowName)
	clean = strings.Trim(clean, "-")
	if clean == "" {
		clean = "flow"
	}
	return "FG-" + clean + "-" + shortID()
}

func shortID() string {
	return uuid.NewString()[:8]
}
