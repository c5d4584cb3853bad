// Package models holds the wire and storage record shapes shared by the
// identity, share, inbox, session, and request services. None of these
// types know how they are persisted; that is the store package's job.
package models

import "encoding/json"

// User is the UKV record for a registered recipient/sender identity.
type User struct {
	Username  string          `json:"username"`
	PublicKey json.RawMessage `json:"publicKey"`
	AuthHash  string          `json:"authHash"`
	UpdatedAt string          `json:"updatedAt"`
}

// ShareMeta is the opaque, client-supplied context attached to a cipher
// bundle. The server never inspects targetOrigin/targetPath/comment beyond
// echoing them back.
type ShareMeta struct {
	TargetOrigin string `json:"targetOrigin,omitempty"`
	TargetPath   string `json:"targetPath,omitempty"`
	Comment      string `json:"comment,omitempty"`
	Sender       string `json:"sender,omitempty"`
}

// Share is the SKV record backing a single-use `/session/<token>` link.
type Share struct {
	Cipher string          `json:"cipher"`
	Alg    string          `json:"alg"`
	Cmp    json.RawMessage `json:"cmp,omitempty"`
	Meta   ShareMeta       `json:"meta"`
}

// InboxMeta describes why an inbox item exists and, for shares, what it
// carries alongside the cipher.
type InboxMeta struct {
	Type               string `json:"type"` // "share" | "revoke"
	TargetOrigin       string `json:"targetOrigin,omitempty"`
	TargetPath         string `json:"targetPath,omitempty"`
	Comment            string `json:"comment,omitempty"`
	Sender             string `json:"sender,omitempty"`
	SessionDurationSec int64  `json:"sessionDurationSec,omitempty"`
	SessionID          string `json:"sessionId,omitempty"`
}

// InboxItem is the IKV record pushed to a recipient's poll queue.
type InboxItem struct {
	ID        string          `json:"id"`
	Cipher    string          `json:"cipher"`
	Alg       string          `json:"alg,omitempty"`
	Cmp       json.RawMessage `json:"cmp,omitempty"`
	Meta      InboxMeta       `json:"meta"`
	CreatedAt string          `json:"createdAt"`
	ExpiresAt string          `json:"expiresAt"`
}

// Session is the durable sender-visible twin of a delivered share.
type Session struct {
	ID           string `json:"id"`
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	TargetOrigin string `json:"targetOrigin,omitempty"`
	TargetPath   string `json:"targetPath,omitempty"`
	CreatedAt    string `json:"createdAt"`
	DurationSec  int64  `json:"durationSec"`
	ExpiresAt    string `json:"expiresAt"`
	AcceptedAt   string `json:"acceptedAt,omitempty"`
	RevokedAt    string `json:"revokedAt,omitempty"`
	RestoredAt   string `json:"restoredAt,omitempty"`

	Cipher string          `json:"cipher"`
	Alg    string          `json:"alg,omitempty"`
	Cmp    json.RawMessage `json:"cmp,omitempty"`
}

// AccessRequest is the request:<id> record created by a recipient asking
// a sender-admin to push credentials.
type AccessRequest struct {
	ID          string `json:"id"`
	Requester   string `json:"requester"`
	Origin      string `json:"origin"`
	URL         string `json:"url,omitempty"`
	CreatedAt   string `json:"createdAt"`
	TargetAdmin string `json:"targetAdmin,omitempty"`
}
