package dto

import "encoding/json"

type PushSubscribeDTO struct {
	Subscription json.RawMessage `json:"subscription" validate:"required"`
}

type PushUnsubscribeDTO struct {
	Endpoint string `json:"endpoint" validate:"required,push_endpoint"`
}

type VapidKeyDTO struct {
	PublicKey string `json:"publicKey"`
}
