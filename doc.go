/*
Package podbundle builds and serves asset bundles for podlets.

Podlets upload source feeds for their JavaScript and CSS assets, layouts
publish instructions naming the podlet tags they need, and the build server
joins the two as soon as both sides are present. Bundles are transformed once
per identity, persisted in a content addressed store and served by hash.

The server is started with the podbundle command:

	podbundle serve --sink fs --fs-path /var/lib/podbundle
*/
package podbundle
