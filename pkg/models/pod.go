package models

import "time"

// ProofOfDelivery is the attested artifact closing out a delivery. Written
// once when the load enters delivered, immutable afterward.
type ProofOfDelivery struct {
	ID           string    `json:"id"`
	LoadID       string    `json:"load_id"`
	SignerName   string    `json:"signer_name"`
	DeliveredAt  time.Time `json:"delivered_at"`
	SignatureRef *string   `json:"signature_ref"`
	PhotoRef     *string   `json:"photo_ref"`
	CreatedAt    time.Time `json:"created_at"`
}
