// Package model defines the league entities the tournament canvases edit:
// categories, rounds, formats, groups and matches.
//
// These are the shapes exchanged with the backend. Graph concerns (node kind,
// position on the canvas, selection) live in package node, which wraps these
// entities as node data.
package model
