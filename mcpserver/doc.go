// Package mcpserver exposes a recollect engine over the Model Context
// Protocol.
//
// Tools: add_episode, search_nodes, search_facts, get_episodes,
// get_entity_edge, delete_entity_edge, delete_episode and clear_graph.
//
// Resources: recollect://status, entity://list, entity://{name} and
// entity_instruction://{name}.
//
// The server runs over stdio (Run) or streamable HTTP (RunHTTP).
package mcpserver
