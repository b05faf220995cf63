package mockserver

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed — исходные данные хранилища в формате YAML.
type Seed struct {
	Users   []SeedUser   `yaml:"users"`
	Groups  []SeedGroup  `yaml:"groups"`
	Folders []SeedFolder `yaml:"folders"`
	Files   []SeedFile   `yaml:"files"`
	Queues  []SeedQueue  `yaml:"queues"`
}

type SeedUser struct {
	ID           string        `yaml:"id"`
	Username     string        `yaml:"username"`
	DisplayName  string        `yaml:"displayName"`
	Email        string        `yaml:"email"`
	Department   string        `yaml:"department"`
	Title        string        `yaml:"title"`
	Disabled     bool          `yaml:"disabled"`
	LastLogonAgo time.Duration `yaml:"lastLogonAgo"`
	Groups       []string      `yaml:"groups"`
}

type SeedGroup struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Members     []string `yaml:"members"`
}

type SeedFolder struct {
	ID             uuid.UUID          `yaml:"id"`
	Name           string             `yaml:"name"`
	Path           string             `yaml:"path"`
	ParentID       *uuid.UUID         `yaml:"parentId"`
	CreatedBy      string             `yaml:"createdBy"`
	Classification string             `yaml:"classification"`
	DeletedBy      string             `yaml:"deletedBy"`
	DeletedAgo     time.Duration      `yaml:"deletedAgo"`
	Permissions    []model.Permission `yaml:"permissions"`
}

type SeedVersion struct {
	VersionID     uuid.UUID     `yaml:"versionId"`
	VersionNumber int           `yaml:"versionNumber"`
	CreatedBy     string        `yaml:"createdBy"`
	CreatedAgo    time.Duration `yaml:"createdAgo"`
	Size          int64         `yaml:"size"`
	Comments      string        `yaml:"comments"`
	IsCurrent     bool          `yaml:"isCurrent"`
}

type SeedChange struct {
	ID            uuid.UUID     `yaml:"id"`
	PreviousLevel string        `yaml:"previousLevel"`
	NewLevel      string        `yaml:"newLevel"`
	ChangedBy     string        `yaml:"changedBy"`
	ChangedAgo    time.Duration `yaml:"changedAgo"`
	Justification string        `yaml:"justification"`
}

type SeedFile struct {
	ID             uuid.UUID          `yaml:"id"`
	Name           string             `yaml:"name"`
	Path           string             `yaml:"path"`
	ParentID       *uuid.UUID         `yaml:"parentId"`
	Size           int64              `yaml:"size"`
	CreatedBy      string             `yaml:"createdBy"`
	CreatedAgo     time.Duration      `yaml:"createdAgo"`
	Classification string             `yaml:"classification"`
	LockedBy       string             `yaml:"lockedBy"`
	LockedAgo      time.Duration      `yaml:"lockedAgo"`
	DeletedBy      string             `yaml:"deletedBy"`
	DeletedAgo     time.Duration      `yaml:"deletedAgo"`
	Content        string             `yaml:"content"`
	Versions       []SeedVersion      `yaml:"versions"`
	Permissions    []model.Permission `yaml:"permissions"`
	History        []SeedChange       `yaml:"history"`
}

type SeedMessage struct {
	ID           uuid.UUID         `yaml:"id"`
	MessageID    string            `yaml:"messageId"`
	Body         string            `yaml:"body"`
	Status       string            `yaml:"status"`
	Priority     string            `yaml:"priority"`
	ErrorMessage string            `yaml:"errorMessage"`
	RetryCount   int               `yaml:"retryCount"`
	ItemID       *uuid.UUID        `yaml:"itemId"`
	Headers      map[string]string `yaml:"headers"`
	ReceivedAgo  time.Duration     `yaml:"receivedAgo"`
}

type SeedQueue struct {
	Name          string        `yaml:"name"`
	ConsumerCount int           `yaml:"consumerCount"`
	Messages      []SeedMessage `yaml:"messages"`
}

// LoadSeed читает исходные данные из файла. Пустой путь — встроенный seed.yaml.
func LoadSeed(path string) (*Seed, error) {
	data := defaultSeed
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("чтение файла исходных данных: %w", err)
		}
	}
	return ParseSeed(data)
}

// ParseSeed разбирает YAML и проверяет ссылочную целостность.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("разбор исходных данных: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Seed) validate() error {
	users := make(map[string]bool, len(s.Users))
	for _, u := range s.Users {
		if u.Username == "" {
			return fmt.Errorf("пользователь %q без username", u.ID)
		}
		users[u.Username] = true
	}
	for _, g := range s.Groups {
		for _, m := range g.Members {
			if !users[m] {
				return fmt.Errorf("группа %s содержит неизвестного пользователя %s", g.Name, m)
			}
		}
	}

	folders := make(map[uuid.UUID]bool, len(s.Folders))
	for _, f := range s.Folders {
		if f.ID == uuid.Nil {
			return fmt.Errorf("папка %q без id", f.Name)
		}
		folders[f.ID] = true
	}
	for _, f := range s.Folders {
		if f.ParentID != nil && !folders[*f.ParentID] {
			return fmt.Errorf("папка %s ссылается на неизвестную родительскую папку %s", f.ID, f.ParentID)
		}
	}

	for _, f := range s.Files {
		if f.ID == uuid.Nil {
			return fmt.Errorf("файл %q без id", f.Name)
		}
		if f.ParentID != nil && !folders[*f.ParentID] {
			return fmt.Errorf("файл %s ссылается на неизвестную папку %s", f.ID, f.ParentID)
		}
	}

	queues := make(map[string]bool, len(s.Queues))
	for _, q := range s.Queues {
		if q.Name == "" {
			return fmt.Errorf("очередь без имени")
		}
		if queues[q.Name] {
			return fmt.Errorf("очередь %s объявлена дважды", q.Name)
		}
		queues[q.Name] = true
	}
	return nil
}
