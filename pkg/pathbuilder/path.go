// Package pathbuilder computes the deterministic archive folder and
// artifact file name for a given (date, hour-window) pair, per a
// configured folder/naming policy.
package pathbuilder

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// GranularityType selects the date folder granularity.
type GranularityType string

const (
	Daily   GranularityType = "daily"
	Monthly GranularityType = "monthly"
	Yearly  GranularityType = "yearly"
)

// SubFolders controls the optional sub-folder segments appended after
// the date token, applied in order: hour-HH-HH, {status}, then each
// entry of Custom.
type SubFolders struct {
	Enabled  bool
	ByHour   bool
	ByStatus bool
	Custom   []string
}

// Naming controls date-token decoration.
type Naming struct {
	Prefix string
	Suffix string
}

// Policy configures Path Builder behavior (the folderStructure config
// group).
type Policy struct {
	Type       GranularityType
	Pattern    string // literal template containing YYYY/MM/DD; overrides Type when set
	SubFolders SubFolders
	Naming     Naming

	FileFormat      string // "json" | "csv"
	CompressionExt  string // "", "gz", "br", "zip" — appended to the file name when set
}

// Result is the computed location of an artifact.
type Result struct {
	FolderPath   string
	ArtifactName string
}

// Key joins FolderPath and ArtifactName into a single '/'-separated
// logical archive key (backend adapters translate '/' as needed).
func (r Result) Key() string {
	if r.FolderPath == "" {
		return r.ArtifactName
	}
	return path.Join(r.FolderPath, r.ArtifactName)
}

// Build computes the folder path and artifact file name for a given
// date ("YYYY-MM-DD") and optional hour range ("HH-HH"). status is
// used only when SubFolders.ByStatus is enabled. Build is a pure,
// total, deterministic function: identical inputs always produce an
// identical Result, and distinct (date, hourRange) pairs produce
// distinct keys under a fixed Policy.
func Build(date string, hourRange string, status string, p Policy) (Result, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return Result{}, fmt.Errorf("pathbuilder: invalid date %q: %w", date, err)
	}

	dateToken := dateToken(t, p)
	dateToken = decorate(dateToken, p.Naming)

	segments := []string{dateToken}
	if p.SubFolders.Enabled {
		if p.SubFolders.ByHour && hourRange != "" {
			segments = append(segments, "hour-"+hourRange)
		}
		if p.SubFolders.ByStatus && status != "" {
			segments = append(segments, status)
		}
		segments = append(segments, p.SubFolders.Custom...)
	}

	ext := p.FileFormat
	if ext == "" {
		ext = "json"
	}
	name := fmt.Sprintf("api-logs_%s_%s.%s", date, hourRange, ext)
	if p.CompressionExt != "" {
		name += "." + p.CompressionExt
	}

	return Result{
		FolderPath:   path.Join(segments...),
		ArtifactName: name,
	}, nil
}

func dateToken(t time.Time, p Policy) string {
	if p.Pattern != "" {
		return expandPattern(p.Pattern, t)
	}
	switch p.Type {
	case Monthly:
		return t.Format("2006-01")
	case Yearly:
		return strconv.Itoa(t.Year())
	case Daily, "":
		fallthrough
	default:
		return t.Format("2006-01-02")
	}
}

// expandPattern substitutes YYYY/MM/DD literal tokens within an
// arbitrary template, e.g. "YYYY/MM/DD" or "YYYY-MM".
func expandPattern(pattern string, t time.Time) string {
	replacer := strings.NewReplacer(
		"YYYY", t.Format("2006"),
		"MM", t.Format("01"),
		"DD", t.Format("02"),
	)
	return replacer.Replace(pattern)
}

func decorate(token string, n Naming) string {
	if n.Prefix == "" && n.Suffix == "" {
		return token
	}
	out := token
	if n.Prefix != "" {
		out = n.Prefix + "_" + out
	}
	if n.Suffix != "" {
		out = out + "_" + n.Suffix
	}
	return out
}
