package dto

type OnlineUsersDTO struct {
	UserIDs []uint64 `json:"userIds"`
}
