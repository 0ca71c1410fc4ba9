// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SearchArgs holds the recognized search options. A nil slice means the
// option is unset and must not reach the search backend at all; the archive
// API treats an explicit empty filter as "return no fields".
type SearchArgs struct {
	// Query lists search terms matched against comment bodies or
	// submission titles and text.
	Query []string `json:"q,omitempty" yaml:"q,omitempty"`

	// Subreddit restricts results to the named subreddits.
	Subreddit []string `json:"subreddit,omitempty" yaml:"subreddit,omitempty"`

	// Author restricts results to the named authors.
	Author []string `json:"author,omitempty" yaml:"author,omitempty"`

	// Limit is the maximum number of records to return (default 20).
	Limit int `json:"limit" yaml:"limit"`

	// Filter lists the fields to retrieve. Nil retrieves all fields.
	Filter []string `json:"filter,omitempty" yaml:"filter,omitempty"`
}
