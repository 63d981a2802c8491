package event

import (
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/selection"
)

// Topics published by folio components.
const (
	TopicTransactionApplied  Topic = "document.transaction.applied"
	TopicTransactionRejected Topic = "document.transaction.rejected"
	TopicDocumentLoaded      Topic = "document.loaded"
	TopicDocumentSaved       Topic = "document.saved"

	TopicCommandExecuted Topic = "command.executed"

	TopicUploadStarted   Topic = "upload.started"
	TopicUploadCompleted Topic = "upload.completed"
	TopicUploadFailed    Topic = "upload.failed"
	TopicUploadCancelled Topic = "upload.cancelled"

	TopicConfigChanged Topic = "config.changed"
)

// Origin says why a transaction was applied.
type Origin string

const (
	OriginUser     Origin = "user"
	OriginUndo     Origin = "undo"
	OriginRedo     Origin = "redo"
	OriginExternal Origin = "external"
)

// TransactionApplied is published after every committed transaction.
// Subscribers holding positions must map them through Mapping.
type TransactionApplied struct {
	TransactionID string
	Version       uint64
	Origin        Origin
	Doc           *model.Node
	Mapping       *model.Mapping
	Selection     selection.Selection
	Meta          map[string]any
}

// TransactionRejected is published when a transaction fails to commit.
type TransactionRejected struct {
	TransactionID string
	Version       uint64
	Err           error
}

// DocumentLoaded is published when an editor replaces its document
// wholesale.
type DocumentLoaded struct {
	Version uint64
	Doc     *model.Node
}

// DocumentSaved is published after a document is persisted.
type DocumentSaved struct {
	ID      string
	Version uint64
}

// CommandExecuted is published after a dispatcher command commits.
type CommandExecuted struct {
	Name          string
	TransactionID string
}

// Upload is the payload of the upload.* topics.
type Upload struct {
	ID       string
	Kind     string
	FileName string
	URL      string
	Err      error
}
