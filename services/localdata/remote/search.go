// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Student is one row of the student search result set.
type Student struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Year       string `json:"year"`
	Score      string `json:"score"`
}

// Alumni is one row of the alumni search result set.
type Alumni struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Company        string `json:"company"`
	Position       string `json:"position"`
	GraduationYear string `json:"graduationYear"`
}

// FilterOptions maps a filter name (department, company, year) to the
// option values the search UI may offer for it.
type FilterOptions map[string][]string

// SearchStudents fetches the student result set matching query.
//
// On failure the typed client error propagates unchanged; callers that
// need a never-fail surface apply their own static fallback.
func (c *Client) SearchStudents(ctx context.Context, query url.Values) ([]Student, error) {
	body, err := c.Do(ctx, "/search/students", query)
	if err != nil {
		return nil, err
	}
	var students []Student
	if err := json.Unmarshal(body, &students); err != nil {
		return nil, fmt.Errorf("decode student results: %w", err)
	}
	return students, nil
}

// SearchAlumni fetches the alumni result set matching query.
func (c *Client) SearchAlumni(ctx context.Context, query url.Values) ([]Alumni, error) {
	body, err := c.Do(ctx, "/search/alumni", query)
	if err != nil {
		return nil, err
	}
	var alumni []Alumni
	if err := json.Unmarshal(body, &alumni); err != nil {
		return nil, fmt.Errorf("decode alumni results: %w", err)
	}
	return alumni, nil
}

// Filters fetches the option values for each search filter.
func (c *Client) Filters(ctx context.Context) (FilterOptions, error) {
	body, err := c.Do(ctx, "/search/filters", nil)
	if err != nil {
		return nil, err
	}
	var options FilterOptions
	if err := json.Unmarshal(body, &options); err != nil {
		return nil, fmt.Errorf("decode filter options: %w", err)
	}
	return options, nil
}
