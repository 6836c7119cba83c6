// Package extract turns a search-result page into model.SearchResult values.
//
// Parsing is lenient: malformed markup never fails, it just yields fewer
// results. The page is walked with CSS selectors (see Selectors):
//
//	container      one per result, in document order
//	  title        block holding the repository link
//	    link       href is "/owner/repo"
//	  language     optional list; its first label is the language
//
// A container whose link is missing or unusable is skipped. A missing
// language only drops language_details from that result.
//
// The site generates its class names, so they change from time to time.
// Selectors can be overridden from the configuration file without a rebuild.
package extract
