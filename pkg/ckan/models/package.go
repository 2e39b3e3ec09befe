package models

// Package is a CKAN dataset as returned by package_search and package_show.
type Package struct {
	ID               string        `json:"id"`
	Name             string        `json:"name,omitempty"`
	Title            string        `json:"title"`
	Notes            string        `json:"notes,omitempty"`
	Organization     *Organization `json:"organization,omitempty"`
	Resources        []Resource    `json:"resources"`
	MetadataCreated  string        `json:"metadata_created,omitempty"`
	MetadataModified string        `json:"metadata_modified,omitempty"`
	Tags             []Tag         `json:"tags,omitempty"`
}

type Organization struct {
	Title string `json:"title"`
	Name  string `json:"name"`
}

type Tag struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Resource is a downloadable artifact attached to a package. URL is opaque.
type Resource struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	URL          string `json:"url"`
	Format       string `json:"format"`
	Created      string `json:"created,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// OrganizationName returns the organization machine name, or "" when the
// package has no publishing organization.
func (p *Package) OrganizationName() string {
	if p.Organization == nil {
		return ""
	}
	return p.Organization.Name
}
