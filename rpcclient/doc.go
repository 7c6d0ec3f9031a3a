/*
Package rpcclient connects the harvester to the relay that executes calls on
the external chain on behalf of the harvester account.

The relay speaks JSON-RPC 2.0 over HTTP. Two methods are used:
"contract_call" executes a single call and returns its result, "status"
returns the current time and epoch of the chain. Only the status read is
retried, a contract call is never repeated because it may change state.

The action of a call tells the relay what to do: "function_call" invokes a
contract method, "transfer" sends the deposit and "view_account" returns the
liquid balance of the receiver as {"amount": "<decimal>"}.
*/
package rpcclient
