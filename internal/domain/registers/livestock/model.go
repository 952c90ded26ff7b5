// Package livestock provides the livestock registry.
package livestock

// Status is the lifecycle state of an animal.
type Status string

const (
	StatusActive  Status = "active"
	StatusSick    Status = "sick"
	StatusSold    Status = "sold"
	StatusDonated Status = "donated"
	StatusDied    Status = "died"
)

// HeadcountExcluded lists statuses that do not count towards a site's headcount.
var HeadcountExcluded = []Status{StatusDonated, StatusDied}

// Animal is one registry row.
type Animal struct {
	ID           string `db:"id"`
	SiteID       string `db:"site_id"`
	Tag          string `db:"tag"`
	Status       Status `db:"status"`
	DeletionMark bool   `db:"deletion_mark"`
}

// CountsTowardsHeadcount reports whether the animal is part of the headcount.
func (a *Animal) CountsTowardsHeadcount() bool {
	if a.DeletionMark {
		return false
	}
	for _, s := range HeadcountExcluded {
		if a.Status == s {
			return false
		}
	}
	return true
}
