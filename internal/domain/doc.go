// Package domain contains the core entities of the slide generation system:
// projects, pages, page image versions, materials, reference files, and the
// task records that track asynchronous generation work. Domain types carry
// their own validation and state-transition rules and have no dependencies
// on storage or transport layers.
package domain
