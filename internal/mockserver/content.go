package mockserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// maxContentSize — предел размера текста, загружаемого для поиска.
const maxContentSize = 4 << 20

// ContentObject — текстовый файл, из которого генерируется запись хранилища.
type ContentObject struct {
	Name string
	Size int64
	Text string
}

// ContentSource — источник текстовых файлов (*.txt).
type ContentSource interface {
	List(ctx context.Context) ([]ContentObject, error)
	String() string
}

// DirSource читает *.txt из каталога файловой системы.
type DirSource struct {
	dir    string
	logger *slog.Logger
}

// NewDirSource создаёт источник для каталога dir.
func NewDirSource(dir string, logger *slog.Logger) *DirSource {
	return &DirSource{dir: dir, logger: logger}
}

func (s *DirSource) String() string { return "dir:" + s.dir }

// List возвращает файлы каталога, отсортированные по имени.
// Отсутствующий каталог не считается ошибкой.
func (s *DirSource) List(ctx context.Context) ([]ContentObject, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Каталог с содержимым файлов не найден", slog.String("dir", s.dir))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("чтение каталога %s: %w", s.dir, err)
	}

	var objects []ContentObject
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("чтение файла %s: %w", e.Name(), err)
		}
		objects = append(objects, ContentObject{
			Name: e.Name(),
			Size: int64(len(data)),
			Text: truncateText(data),
		})
	}
	return objects, nil
}

// MinIOSource читает объекты *.txt из бакета S3-совместимого хранилища.
type MinIOSource struct {
	client *minio.Client
	bucket string
}

// NewMinIOSource создаёт клиент MinIO.
func NewMinIOSource(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIOSource, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("создание клиента MinIO: %w", err)
	}
	return &MinIOSource{client: client, bucket: bucket}, nil
}

func (s *MinIOSource) String() string { return "minio:" + s.bucket }

// List возвращает объекты бакета, отсортированные по ключу.
func (s *MinIOSource) List(ctx context.Context) ([]ContentObject, error) {
	var objects []ContentObject
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("список объектов бакета %s: %w", s.bucket, info.Err)
		}
		if !strings.EqualFold(path.Ext(info.Key), ".txt") {
			continue
		}

		obj, err := s.client.GetObject(ctx, s.bucket, info.Key, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("получение объекта %s: %w", info.Key, err)
		}
		data, err := io.ReadAll(io.LimitReader(obj, maxContentSize))
		obj.Close()
		if err != nil {
			return nil, fmt.Errorf("чтение объекта %s: %w", info.Key, err)
		}

		objects = append(objects, ContentObject{
			Name: path.Base(info.Key),
			Size: info.Size,
			Text: string(data),
		})
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func truncateText(data []byte) string {
	if len(data) > maxContentSize {
		data = data[:maxContentSize]
	}
	return string(data)
}
