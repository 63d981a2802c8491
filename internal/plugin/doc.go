// Package plugin loads Lua plugins that add slash commands.
//
// A plugin is a directory holding a plugin.toml manifest and a Lua entry
// script:
//
//	plugins/
//	  pull-quote/
//	    plugin.toml
//	    init.lua
//
// The script requires the "folio" module and registers commands:
//
//	local folio = require("folio")
//
//	folio.register({
//	    name = "insert",
//	    title = "Pull quote",
//	    keywords = { "quote" },
//	    run = function(ctx)
//	        return { node = {
//	            type = "blockquote",
//	            content = { { type = "paragraph", content = { { type = "text", text = ctx.text } } } },
//	        } }
//	    end,
//	})
//
// A command is registered on the dispatcher as "<plugin>.<name>" and added
// to the slash catalog. Its run function receives the selection, the
// enclosing block and the command params, and returns either a node to
// insert or a built-in command to delegate to:
//
//	return { command = "insert-callout", params = { type = "warning" } }
//
// Returning nil declines, which fails the command without changing the
// document.
package plugin
