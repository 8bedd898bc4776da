// Package notify fans module change events out to observers.
//
// Three kinds of events exist: an attribute took a new value, the option
// list of a select attribute changed, and a module changed owner. A Notifier
// delivers every event to every subscribed observer synchronously, in the
// order the events were raised. Observers subscribed later do not see
// earlier events.
//
// SlogObserver and SignalObserver are ready-made observers that forward
// events to log/slog and to capitan signals respectively.
package notify
