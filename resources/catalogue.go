package resources

// Name is a backend resource collection, used as both the URL segment and the cache key prefix.
type Name string

const (
	Contracts    Name = "contracts"
	Applications Name = "applications"
	Wagons       Name = "wagons"
	Invoices     Name = "invoices"
	Companies    Name = "companies"
	Users        Name = "users"
	Cultures     Name = "cultures"
	Stations     Name = "stations"
	Senders      Name = "senders"
	Receivers    Name = "receivers"
	Owners       Name = "owners"
)

var catalogue = []Name{
	Contracts, Applications, Wagons, Invoices, Companies, Users,
	Cultures, Stations, Senders, Receivers, Owners,
}

// Names lists every resource the admin API exposes.
func Names() []Name {
	return append([]Name(nil), catalogue...)
}

func Known(name string) bool {
	for _, n := range catalogue {
		if string(n) == name {
			return true
		}
	}
	return false
}

// Multipart reports whether the resource accepts file uploads.
func (n Name) Multipart() bool {
	switch n {
	case Applications, Wagons, Invoices:
		return true
	}
	return false
}

func (n Name) Path() string {
	return "/" + string(n)
}
