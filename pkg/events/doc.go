/*
Package events provides an in-process publish/subscribe broker for region
events: rack registrations, liveness transitions, and discovery outcomes.

Subscribers receive events on buffered channels; a subscriber that falls
behind loses events rather than blocking the broker. The region daemon
subscribes at startup and writes every event to the structured log.
*/
package events
