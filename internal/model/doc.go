// Package model defines the records exchanged with the data service and the
// small vocabulary shared by the client core: entity kinds, entity references,
// vote queries and the error taxonomy stored in page state.
//
// Politician and donor ids come from disjoint id spaces; an EntityRef is only
// meaningful together with its Kind.
package model
