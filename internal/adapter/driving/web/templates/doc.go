// Package templates holds the page layout shared by the dashboard pages.
package templates
