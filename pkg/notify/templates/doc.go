// Package templates holds the HTML email components for every notification type.
//
// Components are built from templ.ComponentFunc and escape all dynamic text.
// They perform no I/O and read no clocks: the same view renders to the same bytes.
package templates
