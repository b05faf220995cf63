// Пакет mockserver — in-memory хранилище mock-сервера коллаборации:
// файлы, папки, пользователи AD, группы и очереди сообщений.
//
// Хранилище строится при старте из seed.yaml и текстовых файлов
// (каталог или бакет MinIO) и живёт только в памяти процесса.
// Все операции потокобезопасны (sync.RWMutex), наружу отдаются копии.
package mockserver

import (
	"errors"
	"log/slog"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grouponesailor/tier2/internal/domain/access"
	"github.com/grouponesailor/tier2/internal/domain/model"
)

// ErrorQueue — имя очереди ошибок.
const ErrorQueue = "error"

var (
	// ErrNotRestorable — элемент не найден или не находится в корзине.
	ErrNotRestorable = errors.New("элемент не найден или не удалён")
	// ErrParentNotFound — новая родительская папка не найдена.
	ErrParentNotFound = errors.New("родительская папка не найдена")
	// ErrParentCycle — новая родительская папка совпадает с восстанавливаемой
	// или вложена в неё.
	ErrParentCycle = errors.New("папку нельзя перенести в саму себя или во вложенную папку")
)

// Причины отказа в доступе.
const (
	DenialUserNotFound = "User not found"
	DenialInsufficient = "Insufficient permissions"
	DenialNoPermission = "No access permissions found"
)

// File — файл хранилища.
type File struct {
	ID             uuid.UUID
	Name           string
	Path           string
	Extension      string
	ParentID       *uuid.UUID
	Size           int64
	CreatedBy      string
	CreatedAt      time.Time
	Classification string
	History        []model.ClassificationChange

	IsLocked      bool
	LockedBy      *string
	LockTimestamp *time.Time

	IsDeleted bool
	DeletedBy *string
	DeletedAt *time.Time

	Versions    []model.FileVersion
	Permissions []model.Permission
	Content     string
}

func (f *File) clone() File {
	c := *f
	c.History = slices.Clone(f.History)
	c.Versions = slices.Clone(f.Versions)
	c.Permissions = slices.Clone(f.Permissions)
	return c
}

// UpdatedAt — время создания текущей версии.
func (f *File) UpdatedAt() time.Time {
	for _, v := range f.Versions {
		if v.IsCurrent {
			return v.CreatedAt
		}
	}
	return f.CreatedAt
}

// Folder — папка хранилища.
type Folder struct {
	ID             uuid.UUID
	Name           string
	Path           string
	ParentID       *uuid.UUID
	CreatedBy      string
	Classification string

	IsDeleted bool
	DeletedBy *string
	DeletedAt *time.Time

	Permissions []model.Permission
}

func (f *Folder) clone() Folder {
	c := *f
	c.Permissions = slices.Clone(f.Permissions)
	return c
}

// Queue — очередь сообщений.
type Queue struct {
	Name          string
	ConsumerCount int
	LastChecked   time.Time
	Messages      []model.CollabQueueMessage
}

func (q *Queue) clone() Queue {
	c := *q
	c.Messages = slices.Clone(q.Messages)
	return c
}

// Store — потокобезопасное in-memory хранилище.
type Store struct {
	mu      sync.RWMutex
	files   []*File
	folders []*Folder
	users   []model.User
	groups  []model.ADGroup
	queues  []*Queue
	logger  *slog.Logger
}

// NewStore строит хранилище из исходных данных и сгенерированных файлов.
func NewStore(seed *Seed, generated []File, logger *slog.Logger) *Store {
	now := time.Now().UTC()
	s := &Store{logger: logger.With(slog.String("component", "mock_store"))}

	for _, u := range seed.Users {
		user := model.User{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Email:       u.Email,
			Department:  optString(u.Department),
			Title:       optString(u.Title),
			IsEnabled:   !u.Disabled,
			AdGroups:    slices.Clone(u.Groups),
		}
		if u.LastLogonAgo > 0 {
			t := now.Add(-u.LastLogonAgo)
			user.LastLogon = &t
		}
		s.users = append(s.users, user)
	}

	for _, g := range seed.Groups {
		s.groups = append(s.groups, model.ADGroup{
			ID:          g.ID,
			Name:        g.Name,
			Type:        "Security",
			Description: g.Description,
			Members:     slices.Clone(g.Members),
		})
	}

	for _, f := range seed.Folders {
		folder := &Folder{
			ID:             f.ID,
			Name:           f.Name,
			Path:           f.Path,
			ParentID:       f.ParentID,
			CreatedBy:      f.CreatedBy,
			Classification: f.Classification,
			Permissions:    slices.Clone(f.Permissions),
		}
		if f.DeletedBy != "" {
			folder.IsDeleted = true
			folder.DeletedBy = optString(f.DeletedBy)
			t := now.Add(-f.DeletedAgo)
			folder.DeletedAt = &t
		}
		s.folders = append(s.folders, folder)
	}

	for _, sf := range seed.Files {
		f := seedFileToFile(sf, now)
		s.files = append(s.files, &f)
	}
	for i := range generated {
		f := generated[i].clone()
		s.files = append(s.files, &f)
	}
	for _, f := range s.files {
		if f.ParentID == nil {
			f.ParentID = s.folderForPath(path.Dir(f.Path))
		}
	}

	for _, q := range seed.Queues {
		queue := &Queue{Name: q.Name, ConsumerCount: q.ConsumerCount, LastChecked: now}
		for _, m := range q.Messages {
			queue.Messages = append(queue.Messages, seedMessageToCollab(m, now))
		}
		s.queues = append(s.queues, queue)
	}

	s.logger.Info("Хранилище mock-сервера загружено",
		slog.Int("users", len(s.users)),
		slog.Int("folders", len(s.folders)),
		slog.Int("files", len(s.files)),
		slog.Int("queues", len(s.queues)),
	)
	return s
}

func seedFileToFile(sf SeedFile, now time.Time) File {
	f := File{
		ID:             sf.ID,
		Name:           sf.Name,
		Path:           sf.Path,
		Extension:      strings.TrimPrefix(path.Ext(sf.Name), "."),
		ParentID:       sf.ParentID,
		Size:           sf.Size,
		CreatedBy:      sf.CreatedBy,
		CreatedAt:      now.Add(-sf.CreatedAgo),
		Classification: sf.Classification,
		Permissions:    slices.Clone(sf.Permissions),
		Content:        sf.Content,
	}
	if sf.LockedBy != "" {
		f.IsLocked = true
		f.LockedBy = optString(sf.LockedBy)
		t := now.Add(-sf.LockedAgo)
		f.LockTimestamp = &t
	}
	if sf.DeletedBy != "" {
		f.IsDeleted = true
		f.DeletedBy = optString(sf.DeletedBy)
		t := now.Add(-sf.DeletedAgo)
		f.DeletedAt = &t
	}
	for _, v := range sf.Versions {
		f.Versions = append(f.Versions, model.FileVersion{
			VersionID:     v.VersionID,
			VersionNumber: v.VersionNumber,
			CreatedBy:     v.CreatedBy,
			CreatedAt:     now.Add(-v.CreatedAgo),
			Size:          v.Size,
			Comments:      v.Comments,
			IsCurrent:     v.IsCurrent,
		})
	}
	for _, h := range sf.History {
		f.History = append(f.History, model.ClassificationChange{
			ID:            h.ID,
			PreviousLevel: h.PreviousLevel,
			NewLevel:      h.NewLevel,
			ChangedBy:     h.ChangedBy,
			ChangedAt:     now.Add(-h.ChangedAgo),
			Justification: h.Justification,
		})
	}
	return f
}

func seedMessageToCollab(m SeedMessage, now time.Time) model.CollabQueueMessage {
	msg := model.CollabQueueMessage{
		ID:          m.ID,
		MessageID:   m.MessageID,
		MessageBody: m.Body,
		Status:      m.Status,
		RetryCount:  m.RetryCount,
		ReceivedAt:  now.Add(-m.ReceivedAgo),
		Priority:    m.Priority,
		ItemID:      m.ItemID,
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Status == "" {
		msg.Status = model.MessagePending.String()
	}
	if msg.Priority == "" {
		msg.Priority = model.PriorityNormal.String()
	}
	if m.ErrorMessage != "" {
		msg.ErrorMessage = optString(m.ErrorMessage)
		msg.HasError = true
	}
	if len(m.Headers) > 0 {
		msg.Headers = make(map[string]any, len(m.Headers))
		for k, v := range m.Headers {
			msg.Headers[k] = v
		}
	}
	return msg
}

// folderForPath ищет папку с самым длинным путём, являющимся префиксом dir.
func (s *Store) folderForPath(dir string) *uuid.UUID {
	var best *Folder
	for _, f := range s.folders {
		if f.Path == dir || f.Path == "/" || strings.HasPrefix(dir, f.Path+"/") {
			if best == nil || len(f.Path) > len(best.Path) {
				best = f
			}
		}
	}
	if best == nil {
		return nil
	}
	id := best.ID
	return &id
}

// --- Файлы ---

func (s *Store) file(id uuid.UUID) *File {
	for _, f := range s.files {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (s *Store) folder(id uuid.UUID) *Folder {
	for _, f := range s.folders {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// File возвращает файл по идентификатору (включая удалённые).
func (s *Store) File(id uuid.UUID) (File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.file(id)
	if f == nil {
		return File{}, false
	}
	return f.clone(), true
}

// FileCount возвращает количество файлов.
func (s *Store) FileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// LockedFiles возвращает заблокированные неудалённые файлы.
func (s *Store) LockedFiles() []File {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []File{}
	for _, f := range s.files {
		if f.IsLocked && !f.IsDeleted {
			result = append(result, f.clone())
		}
	}
	return result
}

// UnlockFile снимает блокировку. false — файл не найден или не заблокирован.
func (s *Store) UnlockFile(id uuid.UUID, actor string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.file(id)
	if f == nil || !f.IsLocked {
		return false
	}
	f.IsLocked = false
	f.LockedBy = nil
	f.LockTimestamp = nil

	s.logger.Info("Файл разблокирован",
		slog.String("file_id", id.String()),
		slog.String("actor", actor),
	)
	return true
}

// RestoreFileVersion создаёт новую текущую версию (max+1) из указанной.
func (s *Store) RestoreFileVersion(id uuid.UUID, versionNumber int, admin string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.file(id)
	if f == nil {
		return false
	}
	idx := slices.IndexFunc(f.Versions, func(v model.FileVersion) bool { return v.VersionNumber == versionNumber })
	if idx < 0 {
		return false
	}
	source := f.Versions[idx]

	maxNumber := 0
	for i := range f.Versions {
		f.Versions[i].IsCurrent = false
		maxNumber = max(maxNumber, f.Versions[i].VersionNumber)
	}
	f.Versions = append(f.Versions, model.FileVersion{
		VersionID:     uuid.New(),
		VersionNumber: maxNumber + 1,
		CreatedBy:     admin,
		CreatedAt:     time.Now().UTC(),
		Size:          source.Size,
		Comments:      "Restored from version " + strconv.Itoa(versionNumber),
		IsCurrent:     true,
	})
	f.Size = source.Size

	s.logger.Info("Версия файла восстановлена",
		slog.String("file_id", id.String()),
		slog.Int("version", versionNumber),
		slog.String("actor", admin),
	)
	return true
}

// RestoreDeletedFile возвращает файл из корзины. newParentID, если задан,
// переносит файл в указанную папку.
func (s *Store) RestoreDeletedFile(id uuid.UUID, actor string, newParentID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.file(id)
	if f == nil || !f.IsDeleted {
		return ErrNotRestorable
	}
	if newParentID != nil {
		parent := s.folder(*newParentID)
		if parent == nil || parent.IsDeleted {
			return ErrParentNotFound
		}
		f.ParentID = &parent.ID
		f.Path = joinPath(parent.Path, f.Name)
	}
	f.IsDeleted = false
	f.DeletedBy = nil
	f.DeletedAt = nil

	s.logger.Info("Файл восстановлен из корзины",
		slog.String("file_id", id.String()),
		slog.String("actor", actor),
	)
	return nil
}

// RestoreDeletedFolder возвращает папку из корзины. При переносе в новую
// папку пути вложенных элементов обновляются.
func (s *Store) RestoreDeletedFolder(id uuid.UUID, actor string, newParentID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.folder(id)
	if f == nil || !f.IsDeleted {
		return ErrNotRestorable
	}
	if newParentID != nil {
		parent := s.folder(*newParentID)
		if parent == nil || parent.IsDeleted {
			return ErrParentNotFound
		}
		if s.isWithin(parent, f.ID) {
			return ErrParentCycle
		}
		oldPath := f.Path
		f.ParentID = &parent.ID
		f.Path = joinPath(parent.Path, f.Name)
		s.rebase(oldPath, f.Path)
	}
	f.IsDeleted = false
	f.DeletedBy = nil
	f.DeletedAt = nil

	s.logger.Info("Папка восстановлена из корзины",
		slog.String("folder_id", id.String()),
		slog.String("actor", actor),
	)
	return nil
}

// isWithin сообщает, что folder совпадает с ancestorID или вложена в неё.
func (s *Store) isWithin(folder *Folder, ancestorID uuid.UUID) bool {
	// Ограничение по числу папок защищает от зацикленных parentId в seed.
	for range len(s.folders) + 1 {
		if folder == nil {
			return false
		}
		if folder.ID == ancestorID {
			return true
		}
		if folder.ParentID == nil {
			return false
		}
		folder = s.folder(*folder.ParentID)
	}
	return true
}

// rebase заменяет префикс пути у вложенных папок и файлов.
func (s *Store) rebase(oldPath, newPath string) {
	prefix := oldPath + "/"
	for _, f := range s.folders {
		if strings.HasPrefix(f.Path, prefix) {
			f.Path = newPath + "/" + strings.TrimPrefix(f.Path, prefix)
		}
	}
	for _, f := range s.files {
		if strings.HasPrefix(f.Path, prefix) {
			f.Path = newPath + "/" + strings.TrimPrefix(f.Path, prefix)
		}
	}
}

// --- Права доступа ---

// ItemPermissions возвращает права файла, а если файла нет — папки.
func (s *Store) ItemPermissions(id uuid.UUID) []model.Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.itemPermissions(id))
}

func (s *Store) itemPermissions(id uuid.UUID) []model.Permission {
	if f := s.file(id); f != nil {
		return f.Permissions
	}
	if f := s.folder(id); f != nil {
		return f.Permissions
	}
	return nil
}

// CheckUserAccess проверяет доступ пользователя к элементу.
// Возвращает причину отказа или пустую строку, если доступ есть.
// Прямое право пользователя решает само по себе; иначе достаточно
// первой группы пользователя с достаточным уровнем.
func (s *Store) CheckUserAccess(username string, itemID uuid.UUID, required string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user := s.user(username)
	if user == nil {
		return DenialUserNotFound
	}
	perms := s.itemPermissions(itemID)

	for _, p := range perms {
		if p.PrincipalType == model.PrincipalUser && p.PrincipalID == user.Username {
			if access.HasRequiredAccess(p.AccessLevel, required) {
				return ""
			}
			return DenialInsufficient
		}
	}

	for _, g := range user.AdGroups {
		for _, p := range perms {
			if p.PrincipalType == model.PrincipalGroup && p.PrincipalID == g &&
				access.HasRequiredAccess(p.AccessLevel, required) {
				return ""
			}
		}
	}
	return DenialNoPermission
}

// EffectivePermissions возвращает права элемента, относящиеся к
// пользователю напрямую или через его группы.
func (s *Store) EffectivePermissions(username string, itemID uuid.UUID) []model.EffectivePermission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.EffectivePermission{}
	user := s.user(username)
	if user == nil {
		return result
	}

	for _, p := range s.itemPermissions(itemID) {
		var source string
		switch {
		case p.PrincipalType == model.PrincipalUser && p.PrincipalID == user.Username:
			source = "Direct"
		case p.PrincipalType == model.PrincipalGroup && slices.Contains(user.AdGroups, p.PrincipalID):
			source = "Group"
		default:
			continue
		}
		result = append(result, model.EffectivePermission{
			PrincipalID:   p.PrincipalID,
			PrincipalType: p.PrincipalType,
			AccessLevel:   p.AccessLevel,
			IsInherited:   p.IsInherited,
			Source:        source,
		})
	}
	return result
}

// --- Пользователи и группы ---

func (s *Store) user(username string) *model.User {
	for i := range s.users {
		if strings.EqualFold(s.users[i].Username, username) {
			return &s.users[i]
		}
	}
	return nil
}

func cloneUser(u model.User) model.User {
	u.AdGroups = slices.Clone(u.AdGroups)
	return u
}

// User возвращает пользователя по имени без учёта регистра.
func (s *Store) User(username string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.user(username)
	if u == nil {
		return model.User{}, false
	}
	return cloneUser(*u), true
}

// SearchUsers ищет подстроку в username, displayName и email без учёта регистра.
// Пустой запрос возвращает всех пользователей.
func (s *Store) SearchUsers(query string) []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	result := []model.User{}
	for _, u := range s.users {
		if q == "" ||
			strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.DisplayName), q) ||
			strings.Contains(strings.ToLower(u.Email), q) {
			result = append(result, cloneUser(u))
		}
	}
	return result
}

// Group возвращает группу по имени без учёта регистра.
func (s *Store) Group(name string) (model.ADGroup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.groups {
		if strings.EqualFold(g.Name, name) {
			g.Members = slices.Clone(g.Members)
			return g, true
		}
	}
	return model.ADGroup{}, false
}

// --- Очереди ---

func (s *Store) queue(name string) *Queue {
	for _, q := range s.queues {
		if strings.EqualFold(q.Name, name) {
			return q
		}
	}
	return nil
}

// Queues возвращает все очереди.
func (s *Store) Queues() []Queue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Queue, 0, len(s.queues))
	for _, q := range s.queues {
		result = append(result, q.clone())
	}
	return result
}

// ErrorQueueCount возвращает количество сообщений в очереди ошибок.
func (s *Store) ErrorQueueCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q := s.queue(ErrorQueue); q != nil {
		return len(q.Messages)
	}
	return 0
}

// FindInQueue ищет сообщение по идентификатору элемента.
// queueFound = false, если очереди нет.
func (s *Store) FindInQueue(queueName string, itemID uuid.UUID) (msg *model.CollabQueueMessage, queueFound bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := s.queue(queueName)
	if q == nil {
		return nil, false
	}
	for _, m := range q.Messages {
		if m.ItemID != nil && *m.ItemID == itemID {
			found := m
			return &found, true
		}
	}
	return nil, true
}

// PreviewMessages возвращает первые count сообщений и общее их число.
func (s *Store) PreviewMessages(queueName string, count int) (messages []model.CollabQueueMessage, total int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := s.queue(queueName)
	if q == nil {
		return nil, 0, false
	}
	n := min(max(count, 0), len(q.Messages))
	return slices.Clone(q.Messages[:n]), len(q.Messages), true
}

// TransferMessages переносит сообщения с указанными идентификаторами.
// Неизвестные идентификаторы пропускаются; ok = false только если
// одной из очередей нет.
func (s *Store) TransferMessages(source, target string, ids []uuid.UUID, admin string) (moved int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, dst := s.queue(source), s.queue(target)
	if src == nil || dst == nil {
		return 0, false
	}

	kept := src.Messages[:0:0]
	for _, m := range src.Messages {
		if slices.Contains(ids, m.ID) && src != dst {
			dst.Messages = append(dst.Messages, m)
			moved++
			continue
		}
		kept = append(kept, m)
	}
	src.Messages = kept

	s.logger.Info("Сообщения перенесены",
		slog.String("source", src.Name),
		slog.String("target", dst.Name),
		slog.Int("count", moved),
		slog.String("actor", admin),
	)
	return moved, true
}

// --- Поиск и корзина ---

// SearchFiles ищет неудалённые файлы по подстроке в имени или содержимом.
// classification=hide_classified исключает Confidential и Secret.
func (s *Store) SearchFiles(query, classification string) []File {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	hide := classification == model.HideClassified

	result := []File{}
	for _, f := range s.files {
		if f.IsDeleted {
			continue
		}
		if hide && (f.Classification == model.ClassificationConfidential || f.Classification == model.ClassificationSecret) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(f.Name), q) &&
			!strings.Contains(strings.ToLower(f.Content), q) {
			continue
		}
		result = append(result, f.clone())
	}
	return result
}

// Folder возвращает папку по идентификатору.
func (s *Store) Folder(id uuid.UUID) (Folder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.folder(id)
	if f == nil {
		return Folder{}, false
	}
	return f.clone(), true
}

// DeletedItems возвращает удалённые файлы и папки, новые первыми.
func (s *Store) DeletedItems() []model.DeletedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []model.DeletedItem{}
	for _, f := range s.files {
		if !f.IsDeleted {
			continue
		}
		size := f.Size
		items = append(items, model.DeletedItem{
			ID: f.ID, Name: f.Name, Path: f.Path, Type: model.ItemTypeFile,
			Size: &size, DeletedBy: f.DeletedBy, DeletedAt: f.DeletedAt, CanRestore: true,
		})
	}
	for _, f := range s.folders {
		if !f.IsDeleted {
			continue
		}
		items = append(items, model.DeletedItem{
			ID: f.ID, Name: f.Name, Path: f.Path, Type: model.ItemTypeFolder,
			DeletedBy: f.DeletedBy, DeletedAt: f.DeletedAt, CanRestore: true,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return deletedAt(items[i]).After(deletedAt(items[j]))
	})
	return items
}

func deletedAt(item model.DeletedItem) time.Time {
	if item.DeletedAt == nil {
		return time.Time{}
	}
	return *item.DeletedAt
}

// RecoverDeletedItem восстанавливает файл, а если файла нет — папку.
// Возвращает тип восстановленного элемента.
func (s *Store) RecoverDeletedItem(id uuid.UUID, admin string) (string, bool) {
	if err := s.RestoreDeletedFile(id, admin, nil); err == nil {
		return model.ItemTypeFile, true
	}
	if err := s.RestoreDeletedFolder(id, admin, nil); err == nil {
		return model.ItemTypeFolder, true
	}
	return "", false
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
