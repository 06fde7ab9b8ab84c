package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gfz-dataservices/grobi/datacite"
	"github.com/gfz-dataservices/grobi/metadata"
)

// SchemaStatus classifies a DOI during schema analysis.
type SchemaStatus int

const (
	SchemaUpgradeable SchemaStatus = iota
	SchemaNotUpgradeable
	SchemaAlreadyCurrent
)

func (s SchemaStatus) String() string {
	switch s {
	case SchemaUpgradeable:
		return "upgradeable"
	case SchemaNotUpgradeable:
		return "not_upgradeable"
	case SchemaAlreadyCurrent:
		return "already_current"
	}
	return fmt.Sprintf("SchemaStatus(%d)", int(s))
}

// currentSchemaMarker identifies DOIs that need no upgrade.
const currentSchemaMarker = "kernel-4.6"

// SchemaCheck is the analysis result for one DOI.
type SchemaCheck struct {
	DOI           string
	SchemaVersion string
	Status        SchemaStatus
	Reason        string
	Funders       int
}

// SchemaAnalysis groups every DOI of an account by status, each group in
// listing order.
type SchemaAnalysis struct {
	Upgradeable    []SchemaCheck
	NotUpgradeable []SchemaCheck
	AlreadyCurrent []SchemaCheck
}

// All returns every check in the three groups.
func (a *SchemaAnalysis) All() []SchemaCheck {
	out := make([]SchemaCheck, 0, len(a.Upgradeable)+len(a.NotUpgradeable)+len(a.AlreadyCurrent))
	out = append(out, a.Upgradeable...)
	out = append(out, a.NotUpgradeable...)
	return append(out, a.AlreadyCurrent...)
}

// RequiredFields checks the kernel-4 mandatory fields of attrs.
func RequiredFields(attrs *datacite.Attributes) *metadata.ValidationResult {
	res := &metadata.ValidationResult{}

	switch {
	case !attrs.Has("publisher"):
		res.AddError("publisher", "missing", "Publisher fehlt")
	case attrs.Struct().Fields["publisher"].GetStructValue() != nil:
		if strings.TrimSpace(attrs.Publisher().Name) == "" {
			res.AddError("publisher", "missing", "Publisher-Name fehlt")
		}
	case strings.TrimSpace(attrs.Get("publisher")) == "":
		res.AddError("publisher", "empty", "Publisher ist leer")
	}

	if y := strings.TrimSpace(attrs.Get("publicationYear")); y == "" || y == "0" {
		res.AddError("publicationYear", "missing", "Erscheinungsjahr fehlt")
	}

	titles := attrs.Objects("titles")
	if len(titles) == 0 {
		res.AddError("titles", "missing", "Titel fehlt")
	} else if !slices.ContainsFunc(titles, func(t *structpb.Struct) bool {
		return strings.TrimSpace(datacite.Field(t, "title")) != ""
	}) {
		res.AddError("titles", "empty", "Alle Titel sind leer")
	}

	if len(attrs.Objects("creators")) == 0 {
		res.AddError("creators", "missing", "Urheber (Creators) fehlen")
	}

	types := attrs.Struct().Fields["types"].GetStructValue()
	if strings.TrimSpace(datacite.Field(types, "resourceTypeGeneral")) == "" {
		res.AddError("types.resourceTypeGeneral", "missing", "resourceTypeGeneral fehlt")
	}
	return res
}

// MissingRequired lists the kernel-4 mandatory fields absent from attrs, as
// user-facing reasons.
func MissingRequired(attrs *datacite.Attributes) []string {
	var missing []string
	for _, issue := range RequiredFields(attrs).Errors {
		missing = append(missing, issue.Message)
	}
	return missing
}

// CheckSchema classifies one DOI.
func CheckSchema(doi string, attrs *datacite.Attributes) SchemaCheck {
	version := attrs.SchemaVersion()
	check := SchemaCheck{DOI: doi, SchemaVersion: version, Funders: attrs.FunderCount()}
	if check.SchemaVersion == "" {
		check.SchemaVersion = "unbekannt"
	}

	if strings.Contains(version, currentSchemaMarker) {
		check.Status = SchemaAlreadyCurrent
		check.Reason = "Bereits auf Schema 4.6"
		return check
	}
	if missing := MissingRequired(attrs); len(missing) > 0 {
		check.Status = SchemaNotUpgradeable
		check.Reason = strings.Join(missing, "; ")
		return check
	}
	check.Status = SchemaUpgradeable
	check.Reason = "Alle Pflichtfelder vorhanden"
	if check.Funders > 0 {
		check.Reason += fmt.Sprintf("; %d Funder → fundingReferences", check.Funders)
	}
	return check
}

// AnalyzeSchemas classifies every DOI of the account without writing.
// Cancelling ctx stops the walk and returns ctx's error.
func AnalyzeSchemas(ctx context.Context, lister Lister, onProgress ProgressFunc) (*SchemaAnalysis, error) {
	res := &SchemaAnalysis{}
	n := 0
	err := lister.ListDOIs(ctx, func(d datacite.DOI) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n++
		check := CheckSchema(d.ID, d.Attributes)
		switch check.Status {
		case SchemaUpgradeable:
			res.Upgradeable = append(res.Upgradeable, check)
		case SchemaNotUpgradeable:
			res.NotUpgradeable = append(res.NotUpgradeable, check)
		default:
			res.AlreadyCurrent = append(res.AlreadyCurrent, check)
		}
		if onProgress != nil && n%50 == 0 {
			onProgress(n, 0, fmt.Sprintf("Analysiere DOI %d...", n))
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("listing DOIs: %w", err)
	}
	slog.Info("schema analysis complete",
		"upgradeable", len(res.Upgradeable),
		"not_upgradeable", len(res.NotUpgradeable),
		"already_current", len(res.AlreadyCurrent),
	)
	return res, nil
}

// SchemaUpgrade writes kernel-4 for DOIs that passed analysis. Required
// fields are re-checked against the freshly fetched record, so a DOI that
// lost a field since the analysis fails instead of being written.
var SchemaUpgrade = Kind[SchemaCheck]{
	Name: "Schema",
	Validate: func(cur *datacite.Attributes, _ SchemaCheck) error {
		if missing := MissingRequired(cur); len(missing) > 0 {
			return fmt.Errorf("nicht upgrade-fähig: %s", strings.Join(missing, "; "))
		}
		return nil
	},
	Compare: func(cur *datacite.Attributes, _ SchemaCheck, _ bool) (bool, string) {
		if strings.Contains(cur.SchemaVersion(), currentSchemaMarker) {
			return false, "Schema unverändert (bereits auf Schema 4.6)"
		}
		return true, "Schema-Upgrade auf kernel-4"
	},
	Build: func(cur *datacite.Attributes, _ SchemaCheck) *datacite.Attributes {
		upgraded, _ := cur.WithSchemaKernel4()
		return upgraded
	},
	Write: func(ctx context.Context, remote Remote, doi string, cur *datacite.Attributes, _ SchemaCheck) (string, error) {
		upgraded, funders := cur.WithSchemaKernel4()
		if err := remote.UpdateAttributes(ctx, doi, upgraded); err != nil {
			return "", err
		}
		if funders > 0 {
			return fmt.Sprintf("Schema auf kernel-4 aktualisiert, %d Funder migriert", funders), nil
		}
		return "Schema auf kernel-4 aktualisiert", nil
	},
}

// UpgradeSchemas runs the execute phase over the upgradeable part of an
// analysis. Anything not classified upgradeable is never attempted.
func UpgradeSchemas(ctx context.Context, remote Remote, analysis *SchemaAnalysis, opts Options) (*BatchResult, error) {
	dois := make([]string, 0, len(analysis.Upgradeable))
	records := make(map[string]SchemaCheck, len(analysis.Upgradeable))
	for _, c := range analysis.Upgradeable {
		if c.Status != SchemaUpgradeable {
			continue
		}
		dois = append(dois, c.DOI)
		records[c.DOI] = c
	}
	opts.Store = nil
	return Run(ctx, remote, SchemaUpgrade, dois, records, opts)
}
