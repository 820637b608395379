// Package layout turns recognized menu words into structure: it clusters
// words into lines, merges same-category runs into highlight blocks,
// segments the classified reading-order stream into menu items and
// resolves taps on the rendered image back to those items.
//
// Word boxes may be normalized to [0,1] or expressed in pixels; the
// convention is detected once per analysis with DetectUnits and every
// geometric constant is scaled accordingly.
package layout
