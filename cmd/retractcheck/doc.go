// Package main hosts the retractcheck CLI.
//
// It runs the same reconciliation pipeline as the HTTP service against a
// local RIS file and renders the results as terminal tables or JSON.
package main
