package knowledge

import (
	"embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BTreeMap/Simsar/internal/models"
)

// File names looked up inside a knowledge directory.
const (
	ListingsFile = "properties.csv"
	RulesFile    = "rules.json"
)

//go:embed data
var embedded embed.FS

// DefaultPhaseKnowledge is used for phases that have no content file.
var DefaultPhaseKnowledge = map[string]models.PhaseKnowledge{
	"discovery": {
		SuggestedQuestions: []string{
			"ايه نوع العقار اللي بتدور عليه؟",
			"فين تحب يكون المكان؟",
			"الميزانية تقريبا كام؟",
		},
	},
	"summary": {
		ConfirmationPhrases: []string{"تمام", "مظبوط", "موافق"},
	},
	"suggestion": {
		CallToAction: "شوف العقارات دي وقلّي رأيك",
	},
}

// Load reads the knowledge tables from dir. Missing files are logged and yield empty
// tables; malformed files are errors.
func Load(dir string, opts ...Option) (*Base, error) {
	return LoadFS(os.DirFS(dir), opts...)
}

// Default loads the sample tables compiled into the binary.
func Default(opts ...Option) (*Base, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded knowledge: %w", err)
	}
	return LoadFS(sub, opts...)
}

// LoadFS reads the knowledge tables from fsys.
func LoadFS(fsys fs.FS, opts ...Option) (*Base, error) {
	listings, err := loadListings(fsys, ListingsFile)
	if err != nil {
		return nil, err
	}
	rules, err := loadRules(fsys, RulesFile)
	if err != nil {
		return nil, err
	}
	phases, err := loadPhases(fsys)
	if err != nil {
		return nil, err
	}
	slog.Info("Knowledge loaded", "listings", len(listings), "budgetRules", len(rules.BudgetAdvice),
		"priorityRules", len(rules.PropertyPriority), "phases", len(phases))
	return NewBase(listings, rules, phases, opts...), nil
}

func loadListings(fsys fs.FS, name string) ([]models.Listing, error) {
	f, err := fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Listings file not found", "file", name)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()
	return ReadListings(f)
}

// ReadListings parses CSV with a header row into listings. The "id" column becomes the
// listing ID; rows without one are numbered from 1 in file order.
func ReadListings(r io.Reader) ([]models.Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read listings header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	var listings []models.Listing
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read listings row %d: %w", row, err)
		}
		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				fields[col] = strings.TrimSpace(rec[i])
			}
		}
		id := fields["id"]
		if id == "" {
			id = strconv.Itoa(row)
		}
		listings = append(listings, models.Listing{ID: id, Fields: fields})
	}
	return listings, nil
}

func loadRules(fsys fs.FS, name string) (models.RuleSet, error) {
	var rules models.RuleSet
	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Rules file not found", "file", name)
		return rules, nil
	}
	if err != nil {
		return rules, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return rules, nil
}

// loadPhases reads <phase>.json or <phase>.yaml for every phase, falling back to
// DefaultPhaseKnowledge.
func loadPhases(fsys fs.FS) (map[string]models.PhaseKnowledge, error) {
	phases := make(map[string]models.PhaseKnowledge, len(models.AllPhases))
	for _, p := range models.AllPhases {
		k, found, err := loadPhase(fsys, p.Key())
		if err != nil {
			return nil, err
		}
		if !found {
			def, ok := DefaultPhaseKnowledge[p.Key()]
			if !ok {
				slog.Debug("No knowledge for phase", "phase", p)
				continue
			}
			slog.Warn("Phase file not found, using defaults", "phase", p)
			k = def
		}
		phases[p.Key()] = k
	}
	return phases, nil
}

func loadPhase(fsys fs.FS, key string) (models.PhaseKnowledge, bool, error) {
	var k models.PhaseKnowledge
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		name := key + ext
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return k, false, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if path.Ext(name) == ".json" {
			err = json.Unmarshal(data, &k)
		} else {
			err = yaml.Unmarshal(data, &k)
		}
		if err != nil {
			return k, false, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return k, true, nil
	}
	return k, false, nil
}
