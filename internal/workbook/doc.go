// Package workbook locates job bill-of-materials workbooks on the shared drive and
// reads them.
//
// A job workbook is a macro-enabled spreadsheet named "{job}*.xlsm". Its CONTROLE
// sheet lists the tags expected for the job; its PROJET sheet carries project
// metadata and the per-part packaging dimensions. Parsing produces a JobPartSet, an
// immutable value every consumer projects from: the deduplicated part set used for
// validation, the ordered (part, sequence) occurrences used for detail views, and the
// job's total expected quantity.
package workbook
