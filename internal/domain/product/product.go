package product

// Product is a catalog entry owned by the remote balance-management service.
// The local service only ever reads these, so there is no repository contract
// beyond the remote listing call.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Currency    string
	Category    string
	Stock       int
}
