package model

// AdItem — субъект AD с методами доступа к элементу.
type AdItem struct {
	AdID          string `json:"adId"`
	AdName        string `json:"adName"`
	AccessMethods []int  `json:"accessMethods"`
}

// ItemPermissionsBody — права на элемент по данным системы Midur.
type ItemPermissionsBody struct {
	ItemID          int      `json:"itemId"`
	DirectAdItems   []AdItem `json:"directAdItems"`
	IsInherite      bool     `json:"isInherite"`
	InheriteAdItems []AdItem `json:"inheriteAdItems"`
}

// ItemPermissionsResponse — конверт ответа getItemPermissions.
type ItemPermissionsResponse struct {
	ResponseBody   ItemPermissionsBody `json:"responseBody"`
	ResponseHeader ResponseHeader      `json:"responseHeader"`
	Ex             *string             `json:"ex"`
}

// StorageIDBody — физическое расположение элемента.
type StorageIDBody struct {
	ItemID      string `json:"itemId"`
	StorageID   string `json:"storageId"`
	StorageType int    `json:"storageType"`
}

// StorageIDResponse — конверт ответа getStorageId.
type StorageIDResponse struct {
	ResponseBody   StorageIDBody  `json:"responseBody"`
	ResponseHeader ResponseHeader `json:"responseHeader"`
	Ex             *string        `json:"ex"`
}
