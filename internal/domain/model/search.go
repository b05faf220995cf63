package model

import "time"

// Значение параметра classification, скрывающее Confidential и Secret.
const HideClassified = "hide_classified"

// SearchSort — критерий сортировки поиска.
type SearchSort struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// FilesSearchRequest — запрос полнотекстового поиска файлов.
type FilesSearchRequest struct {
	Q       string         `json:"q"`
	Filters map[string]any `json:"filters,omitempty"`
	Sort    []SearchSort   `json:"sort,omitempty"`
	System  string         `json:"system,omitempty"`
	UUID    string         `json:"uuid,omitempty"`
}

// PagingInfo — курсор постраничного поиска.
type PagingInfo struct {
	PitID string  `json:"pit_id"`
	Sort  []int64 `json:"sort"`
}

// FileMetadata — метаданные найденного файла.
type FileMetadata struct {
	AuthorizationLevel  string    `json:"authorizationLevel"`
	Extension           string    `json:"extension"`
	UpdateDate          time.Time `json:"updateDate"`
	UpdateID            string    `json:"updateId"`
	FullNamePath        string    `json:"fullNamePath"`
	AcExternalID        string    `json:"acExternalId"`
	AcInheriteType      int       `json:"acInheriteType"`
	OwnerID             string    `json:"ownerId"`
	Type                int       `json:"type"`
	FullPath            string    `json:"fullPath"`
	LastOperationDate   time.Time `json:"lastOperationDate"`
	ParentID            string    `json:"parentId"`
	LastOperationByUser string    `json:"lastOperationByUser"`
	ParentName          string    `json:"parentName"`
	Size                int64     `json:"size"`
	LastOperation       string    `json:"lastOperation"`
	Name                string    `json:"name"`
	Attributes          []any     `json:"attributes"`
	ID                  string    `json:"id"`
	Status              int       `json:"status"`
	CreateDate          time.Time `json:"createDate"`
}

// FileHit — одно совпадение поиска.
type FileHit struct {
	Metadata FileMetadata `json:"metadata"`
}

// FilesSearchResponse — результат поиска.
type FilesSearchResponse struct {
	Paging PagingInfo `json:"paging"`
	Hits   []FileHit  `json:"hits"`
}
