package event

// ListOptions provides filtering options for listing events.
type ListOptions struct {
	AssetRef string
	AssetID  *uint64
	RentID   string
	Type     *Type
	Limit    int
	Offset   int
}
