// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package referral

import (
	"fmt"
	"time"
)

// fixtureSeed is the static demo roster every unseeded scope starts with.
// Kept as data, not state: DefaultFixtures builds fresh values on every
// call so no two scopes (or tests) share mutable records.
var fixtureSeed = []struct {
	studentID  string
	name       string
	department string
	year       int
	score      float64
	position   string
	company    string
	message    string
}{
	{"s-1001", "Ananya Rao", "Computer Science", 2026, 8.7, "SDE I", "Brightwave", "Worked on your team's open source tooling last summer."},
	{"s-1002", "Marcus Chen", "Computer Science", 2026, 9.1, "Backend Engineer", "Corelight Systems", "Built a distributed cache for my capstone project."},
	{"s-1003", "Priya Natarajan", "Electronics", 2027, 8.2, "Embedded Engineer", "Veridian Labs", "Two internships in firmware, looking for my first full-time role."},
	{"s-1004", "Diego Alvarez", "Information Systems", 2026, 7.9, "Data Analyst", "Northfield Analytics", "Led the analytics club; strong SQL and dbt experience."},
	{"s-1005", "Sofia Lindqvist", "Computer Science", 2025, 9.4, "ML Engineer", "Brightwave", "Published a workshop paper on retrieval evaluation."},
	{"s-1006", "Tunde Okafor", "Mechanical", 2026, 8.0, "Product Engineer", "Halverson Manufacturing", "Interned on the line-automation team twice."},
	{"s-1007", "Lena Kovac", "Mathematics", 2027, 8.9, "Quant Researcher", "Meridian Capital", "IMO honorable mention; heavy probability coursework."},
	{"s-1008", "Arjun Mehta", "Computer Science", 2026, 7.5, "SRE", "Corelight Systems", "Run the campus infrastructure society's k8s cluster."},
	{"s-1009", "Grace Botha", "Design", 2026, 8.4, "Product Designer", "Northfield Analytics", "Portfolio includes two shipped mobile apps."},
	{"s-1010", "Yuki Tanaka", "Computer Science", 2025, 9.0, "Platform Engineer", "Veridian Labs", "Maintainer of a popular Go linting plugin."},
}

// fixtureBaseTime anchors fixture timestamps so seeded documents are
// byte-stable across runs and contexts.
var fixtureBaseTime = time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

// DefaultFixtures returns the fixed default request set for a scope.
//
// Description:
//
//	Pure factory: every call builds fresh records, all Pending, with IDs
//	"1".."10" unique within the scope. Passed into the store's seeding
//	path; it runs at most once per scope ever, so it never clobbers a
//	user's prior approvals on reload. Tests inject their own factory
//	instead of mutating this one.
func DefaultFixtures(scopeID string) []Request {
	out := make([]Request, 0, len(fixtureSeed))
	for i, f := range fixtureSeed {
		out = append(out, Request{
			ID:          fmt.Sprintf("%d", i+1),
			ScopeID:     scopeID,
			StudentID:   f.studentID,
			StudentName: f.name,
			Department:  f.department,
			Year:        f.year,
			Score:       f.score,
			Position:    f.position,
			Company:     f.company,
			Message:     f.message,
			Status:      StatusPending,
			CreatedAt:   fixtureBaseTime.Add(time.Duration(i) * time.Hour),
		})
	}
	return out
}
