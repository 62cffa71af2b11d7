// Package scan finds text anomalies in a verse corpus: words merged by a lost
// separator (detected on diacritic-free text), leftover formatting markers,
// and tokens made only of stop marks.
//
// Merge detection matches (left)(\s*)(right) against the normalized text;
// a finding whose span is empty is a positive merge.
package scan
