// Package api is the HTTP surface of vapi.
//
// It serves three groups of routes on one chi router:
//
//   - /api/{service}/{entity}/{route}[/{id}] serves the emulated APIs. Each
//     request is resolved against the service configuration and, if an
//     active endpoint matches, handed to the resource gateway. The HTTP
//     method and the presence of an id select the verb: GET lists (query
//     parameters become an equality filter), GET with an id maps to
//     GET_BY_ID, POST creates, PUT with an id replaces and DELETE with an id
//     removes.
//   - /admin/services and /admin/reconcile administer the configuration.
//     Every mutation schedules a reconciliation pass and publishes an event.
//   - /admin/ws streams those events to connected admin clients over a
//     websocket.
//
// Resolution failures map to 404, structure violations to 422, malformed
// bodies to 400, name conflicts to 409 and corrupt configuration or storage
// failures to 500. Error bodies share the ErrorResponse shape.
package api
