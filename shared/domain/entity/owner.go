package entity

// Owner is a pet owner. Agents only read owners.
type Owner struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}
