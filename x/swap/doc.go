/*
Package swap converts distributed rewards through an exchange and forwards
the bought asset to a downstream consumer together with a farming payload.

Conversion is asynchronous: the buy call is issued with a callback that
forwards whatever amount the exchange returned. When the buy fails the
original amount is returned to the distributable funds.
*/
package swap
