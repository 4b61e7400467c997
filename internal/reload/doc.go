// Package reload watches a FleetConfig file for changes and translates
// each change into the directives needed to bring a running fleet in line
// with it: new sites are created and deployed, removed sites are torn
// down, sites whose service parameters changed are staged and published,
// and sites whose listener address changed are torn down and recreated.
package reload
