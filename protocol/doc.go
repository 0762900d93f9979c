package protocol

// This package implements parsing of countdown requests and serialising of
// the countdown stream that the countdown server sends back to its clients.
//
// The protocol piggybacks on the shape of an HTTP/1.x request so that any
// HTTP client can drive it, e.g.
//
//   curl -N localhost:8080/1:15:0
//
// Only the request line is ever looked at. Headers, methods and versions
// are ignored.
//
// === Request
//
//   ```
//     <METHOD> /<duration>[/<anything>] <VERSION>\r\n
//     ...ignored...
//   ```
//
// Where `<duration>` is one of
//
// - `<seconds>`
// - `<minutes>:<seconds>`
// - `<hours>:<minutes>:<seconds>`
//
// Components are read from the right. Missing leading components are 0 and
// any components beyond the third are dropped. Every component we look at
// must be a non-negative base 10 integer, unless the parser is running in
// Lenient mode, in which case a bad seconds component reads as 0.
//
// === Response
//
//   ```
//     HTTP/1.1 200 OK\r\n\r\n
//     <line>\n
//     <clear-line><line>\n
//     ...
//     <clear-line><red><ALARM banner><clear-color>\a\n
//   ```
//
// One line is sent per second, counting down from the requested duration to
// zero inclusive. Every line after the first is prefixed with an escape
// sequence that moves the cursor up and erases the previous line, so a
// terminal displays the countdown in place.
//
// The width of a line (`hh:mm:ss`, `mm:ss` or `ss`) is picked once from the
// total duration and kept for the whole countdown. Lines at or below the red
// threshold are wrapped in a white-on-red colour escape.
//
// === Malformed requests
//
//   ```
//     HTTP/1.1 200 OK\r\n\r\n
//     Usage: curl ip:8080/<hours>:<minutes>:<seconds>\r\n
//     Example curl ip:8080/1:15:0\r\n
//   ```
//
