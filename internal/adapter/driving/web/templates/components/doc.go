// Package components holds reusable templ components for the dashboard pages.
package components
