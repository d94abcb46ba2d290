package requestlog

// Logger is the minimal interface for recording sends. The executor accepts
// it so history can be kept anywhere.
type Logger interface {
	Log(entry *Entry)
}

// Store defines the interface for send history storage.
type Store interface {
	Logger

	// Get retrieves an entry by ID.
	Get(id string) *Entry

	// List returns entries newest first, optionally filtered.
	List(filter *Filter) []*Entry

	// Clear removes all entries.
	Clear()

	// Count returns the number of entries.
	Count() int
}

// Filter defines criteria for filtering history.
type Filter struct {
	// Method filters by HTTP method.
	Method string

	// URL filters by URL substring.
	URL string

	// TabID filters by issuing tab.
	TabID string

	// StatusCode filters by response status code.
	StatusCode int

	// HasError filters by transport failure presence.
	HasError *bool

	// Limit is the maximum number of entries to return.
	Limit int

	// Offset is the number of entries to skip.
	Offset int
}

// Subscriber is a channel that receives new entries.
type Subscriber chan *Entry

// SubscribableStore extends Store with subscription support.
type SubscribableStore interface {
	Store

	// Subscribe registers a subscriber and returns its channel and an
	// unsubscribe function.
	Subscribe() (Subscriber, func())
}
