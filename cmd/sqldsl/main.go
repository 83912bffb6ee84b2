// Command sqldsl renders and runs the queries of a query document.
package main

func main() {
	Execute()
}
