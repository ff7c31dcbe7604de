// Package locations implements the saved-destination commands: add, list,
// show, favorite and remove.
package locations
