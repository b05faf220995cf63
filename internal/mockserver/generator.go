package mockserver

import (
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

// GeneratorSeed — зерно генератора, дающее воспроизводимый набор файлов.
const GeneratorSeed = 42

var (
	generatedCreators = []string{
		"john.doe", "jane.smith", "bob.wilson", "alice.brown",
		"charlie.davis", "diana.lee", "frank.miller", "grace.wong",
	}
	generatedClassifications = []string{
		model.ClassificationPublic, model.ClassificationInternal,
		model.ClassificationConfidential, model.ClassificationSecret,
	}
	generatedFolders = []string{
		"/Documents", "/Projects", "/Documents/Archive", "/Projects/Current", "/Projects/Completed",
	}
)

// GenerateFiles создаёт по одному файлу на каждый текстовый объект.
// При одинаковых объектах и зерне результат одинаков, кроме
// временных меток, отсчитываемых от now.
func GenerateFiles(objects []ContentObject, seed int64, now time.Time) []File {
	rng := rand.New(rand.NewSource(seed))
	files := make([]File, 0, len(objects))

	for _, obj := range objects {
		id := mustUUID(rng)
		creator := generatedCreators[rng.Intn(len(generatedCreators))]
		level := generatedClassifications[rng.Intn(len(generatedClassifications))]
		folder := generatedFolders[rng.Intn(len(generatedFolders))]
		createdAt := now.AddDate(0, 0, -(1 + rng.Intn(364)))

		f := File{
			ID:             id,
			Name:           obj.Name,
			Path:           path.Join(folder, obj.Name),
			Extension:      strings.TrimPrefix(path.Ext(obj.Name), "."),
			Size:           obj.Size,
			CreatedBy:      creator,
			CreatedAt:      createdAt,
			Classification: level,
			Content:        obj.Text,
		}

		if rng.Intn(100) < 15 {
			lockedBy := generatedCreators[rng.Intn(len(generatedCreators))]
			lockedAt := now.Add(-time.Duration(1+rng.Intn(47)) * time.Hour)
			f.IsLocked = true
			f.LockedBy = &lockedBy
			f.LockTimestamp = &lockedAt
		}

		f.History = []model.ClassificationChange{{
			ID:            mustUUID(rng),
			PreviousLevel: model.ClassificationPublic,
			NewLevel:      level,
			ChangedBy:     creator,
			ChangedAt:     now.AddDate(0, 0, -(1 + rng.Intn(29))),
			Justification: "Set to " + level + " based on content sensitivity",
		}}

		initialSize := max(obj.Size-int64(100+rng.Intn(900)), 0)
		f.Versions = []model.FileVersion{
			{
				VersionID:     mustUUID(rng),
				VersionNumber: 1,
				CreatedBy:     creator,
				CreatedAt:     createdAt,
				Size:          initialSize,
				Comments:      "Initial version",
			},
			{
				VersionID:     mustUUID(rng),
				VersionNumber: 2,
				CreatedBy:     creator,
				CreatedAt:     createdAt.AddDate(0, 0, 1+rng.Intn(29)),
				Size:          obj.Size,
				Comments:      "Updated content and formatting",
				IsCurrent:     true,
			},
		}

		inheritedFrom := "Parent Folder"
		f.Permissions = []model.Permission{
			{PrincipalID: creator, PrincipalType: model.PrincipalUser, AccessLevel: "Delete"},
			{
				PrincipalID:   "File Managers",
				PrincipalType: model.PrincipalGroup,
				AccessLevel:   "Modify",
				IsInherited:   true,
				InheritedFrom: &inheritedFrom,
			},
		}

		files = append(files, f)
	}
	return files
}

// mustUUID берёт UUID из детерминированного генератора.
// Чтение из *rand.Rand не возвращает ошибок.
func mustUUID(rng *rand.Rand) uuid.UUID {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		panic(err)
	}
	return id
}
