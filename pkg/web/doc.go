// Package web exposes the build server over HTTP.
//
//	PUT  /feed, /feed/{type}              upload a feed (multipart or JSON)
//	GET  /feed/{file}                     fetch a stored feed
//	POST /bundle, /bundle/{type}          build a bundle from a list of feeds
//	GET  /bundle/{identity}.{type}        fetch a bundle, building it if needed
//	POST /assets                          upload and publish a feed for a tag
//	POST /instructions                    publish the instruction of a layout
//	GET  /instructions/{layout}/{type}    join status of a layout
//	GET  /history?from={token}&max={n}      publishes recorded after a token
//	GET  /healthz, /metrics
package web
