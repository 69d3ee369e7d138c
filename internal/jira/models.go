package jira

import "github.com/reillywatson/dorametrics/internal/dora"

// Version represents a project version from Jira's REST API
type Version struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	Released    bool   `json:"released"`
}

// SearchResponse represents the response from Jira's issue search
type SearchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// Issue represents a Jira issue restricted to the fields the repair metrics need
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields represents the requested subset of an issue's fields
type IssueFields struct {
	ResolutionDate *string   `json:"resolutiondate"`
	FixVersions    []Version `json:"fixVersions"`
}

func (v Version) toReleaseRecord() dora.ReleaseRecord {
	return dora.ReleaseRecord{
		ID:          v.ID,
		Name:        v.Name,
		ReleaseDate: v.ReleaseDate,
	}
}

func (i Issue) toIssueRecord() dora.IssueRecord {
	fixVersions := make([]dora.FixVersion, 0, len(i.Fields.FixVersions))
	for _, v := range i.Fields.FixVersions {
		fixVersions = append(fixVersions, dora.FixVersion{Name: v.Name, ReleaseDate: v.ReleaseDate})
	}

	return dora.IssueRecord{
		Key:            i.Key,
		ResolutionDate: i.Fields.ResolutionDate,
		FixVersions:    fixVersions,
	}
}
