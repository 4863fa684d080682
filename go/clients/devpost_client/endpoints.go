package devpost_client

const (
	// Gallery pages are requested as <gallery>?page=N.
	pageParam = "page"

	HTMLHeader      = "accept"
	HTMLContentType = "text/html"
	UserAgentHeader = "user-agent"
	UserAgent       = "hackjudge-importer/1.0"

	// Markup hooks of a gallery entry.
	entryLinkClass = "link-to-software"
	membersClass   = "members"
	softwarePath   = "/software/"
)
