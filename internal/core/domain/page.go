package domain

// PageRequest describes one request against the remote delivery API.
type PageRequest struct {
	// Kind selects the collection: KindEntry or KindAsset.
	Kind Kind

	// ContentType restricts entries to one content type. Empty means all.
	ContentType string

	// Conditions are translated into remote query parameters.
	Conditions []Condition

	// Locale is sent as the locale parameter. LocaleAll requests every locale.
	Locale string

	// Include is the number of link levels the remote should embed.
	Include int

	// Limit is the page size. Zero means the client default.
	Limit int

	// Token continues a previous page. Empty requests the first page.
	Token string
}

// Page is one page of delivery API results.
type Page struct {
	// Items are the matching documents in remote order.
	Items []*Document

	// Includes are linked documents embedded by the remote.
	Includes []*Document

	// Total is the total number of matches reported by the remote.
	Total int

	// HasNext indicates more pages are available.
	HasNext bool

	// NextToken requests the following page when HasNext is true.
	NextToken string
}

// SyncPage is one page of the incremental sync stream.
type SyncPage struct {
	// Items are created, updated and deleted documents in delivery order.
	Items []*Document

	// HasMore indicates NextToken continues the current cycle.
	// When false NextToken is the cursor for the next cycle.
	HasMore bool

	// NextToken is the page token or the next sync token.
	NextToken string
}

// SyncResult summarises one sync cycle.
type SyncResult struct {
	// CycleID identifies the cycle in logs.
	CycleID string

	// ItemsSynced is the number of items applied to the store.
	ItemsSynced int

	// Found reports whether the requested id was among the synced items.
	// Always true when no id was requested.
	Found bool

	// Token is the persisted sync token after the cycle.
	Token string

	// RetryScheduled reports whether a webhook retry was scheduled.
	RetryScheduled bool
}
