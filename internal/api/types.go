package api

// Item describes an airlock entry in a transport-friendly format.
type Item struct {
	ID            int64   `json:"id"`
	AssetID       string  `json:"assetId,omitempty"`
	SourcePath    string  `json:"sourcePath"`
	OriginalName  string  `json:"originalName,omitempty"`
	Status        string  `json:"status"`
	TrustLevel    string  `json:"trustLevel,omitempty"`
	Confidence    float64 `json:"confidence"`
	Payload       any     `json:"payload,omitempty"`
	ErrorMessage  string  `json:"errorMessage,omitempty"`
	UserID        string  `json:"userId,omitempty"`
	CreatedAt     string  `json:"createdAt,omitempty"`
	UpdatedAt     string  `json:"updatedAt,omitempty"`
	LastHeartbeat string  `json:"lastHeartbeat,omitempty"`
}

// Ghost describes a ghost entry in a transport-friendly format.
type Ghost struct {
	ID             int64   `json:"id"`
	AssetID        string  `json:"assetId"`
	ExpectedAmount float64 `json:"expectedAmount"`
	ExpectedDate   string  `json:"expectedDate"`
	Description    string  `json:"description,omitempty"`
	Status         string  `json:"status"`
	TransactionID  int64   `json:"transactionId,omitempty"`
}

// TransactionLine is one movement of a committed transaction.
type TransactionLine struct {
	AssetID  string  `json:"assetId"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Transaction describes a committed ledger transaction.
type Transaction struct {
	ID           int64             `json:"id"`
	Date         string            `json:"date"`
	Description  string            `json:"description,omitempty"`
	SourceItemID int64             `json:"sourceItemId,omitempty"`
	Lines        []TransactionLine `json:"lines"`
}

// ItemListResponse wraps item collections.
type ItemListResponse struct {
	Items []Item `json:"items"`
}

// ItemResponse wraps a single item.
type ItemResponse struct {
	Item Item `json:"item"`
}

// GhostListResponse wraps ghost collections.
type GhostListResponse struct {
	Ghosts []Ghost `json:"ghosts"`
}

// GhostResponse wraps a single ghost.
type GhostResponse struct {
	Ghost Ghost `json:"ghost"`
}

// CommitResponse reports the result of pushing an item through the gate.
type CommitResponse struct {
	Transaction  Transaction `json:"transaction"`
	MatchedCount int         `json:"matchedCount"`
	MatchErrors  []string    `json:"matchErrors,omitempty"`
}

// StatusResponse aggregates daemon runtime information.
type StatusResponse struct {
	Running      bool           `json:"running"`
	DBPath       string         `json:"dbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Queue        map[string]int `json:"queue"`
}

// UploadRequest is the JSON body accepted by the upload endpoint. Either
// Content (the document bytes) or FilePath (an existing blob) must be set.
type UploadRequest struct {
	FileName string `json:"fileName,omitempty"`
	FilePath string `json:"filePath,omitempty"`
	Content  string `json:"content,omitempty"`
	AssetID  string `json:"assetId,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

// UpdatePayloadRequest replaces an item's extracted transactions.
type UpdatePayloadRequest struct {
	Transactions []PayloadTransaction `json:"transactions"`
}

// PayloadTransaction mirrors the persisted payload row.
type PayloadTransaction struct {
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Description  string  `json:"description,omitempty"`
	Counterparty string  `json:"counterparty,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// GhostCreateRequest registers an expected movement.
type GhostCreateRequest struct {
	AssetID        string  `json:"assetId"`
	ExpectedAmount float64 `json:"expectedAmount"`
	ExpectedDate   string  `json:"expectedDate"`
	Description    string  `json:"description,omitempty"`
}

// OverdueSweepResponse reports how many pending ghosts were flipped to OVERDUE.
type OverdueSweepResponse struct {
	Updated int64 `json:"updated"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
