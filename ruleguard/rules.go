package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// mirrorResponses keeps responses byte-for-byte plain: no range requests,
// conditional requests, caching headers or compression.
func mirrorResponses(m dsl.Matcher) {
	// ServeContent and ServeFile answer Range, If-Modified-Since and
	// If-None-Match, and set Last-Modified.
	m.Match(`http.ServeContent($*_)`, `http.ServeFile($*_)`, `http.ServeFileFS($*_)`, `http.FileServer($*_)`, `http.FileServerFS($*_)`).
		Report(`mirror responses must not support range or conditional requests; stream the asset with io.Copy`)

	m.Match(`$h.Set($key, $_)`, `$h.Add($key, $_)`).
		Where(m["h"].Type.Is(`http.Header`) &&
			m["key"].Text.Matches(`^"(Cache-Control|ETag|Last-Modified|Expires|Content-Encoding|Accept-Ranges)"$`)).
		Report(`mirror responses carry no caching, range or encoding headers`)

	m.Import(`compress/gzip`)
	m.Match(`gzip.NewWriter($*_)`, `gzip.NewWriterLevel($*_)`).
		Report(`mirror responses are never compressed`)
}

// smells carries the general refactoring hints.
func smells(m dsl.Matcher) {
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)
}
